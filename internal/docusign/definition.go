package docusign

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"esign-gateway/internal/envelope"
)

// EnvelopeDefinition is the provider-facing envelope payload. The provider's
// object graph is not modeled beyond the fields this gateway actually sends.
type EnvelopeDefinition struct {
	EmailSubject string     `json:"emailSubject"`
	Documents    []Document `json:"documents"`
	Recipients   Recipients `json:"recipients"`
	Status       string     `json:"status"`
}

// Document is a base64-embedded file inside an envelope definition.
type Document struct {
	DocumentBase64 string `json:"documentBase64"`
	Name           string `json:"name"`
	FileExtension  string `json:"fileExtension"`
	DocumentID     string `json:"documentId"`
}

// Recipients groups the signers and the carbon-copied viewers.
type Recipients struct {
	Signers      []Signer     `json:"signers"`
	CarbonCopies []CarbonCopy `json:"carbonCopies"`
}

// Signer is a recipient who must sign the document.
type Signer struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	RecipientID  string `json:"recipientId"`
	RoutingOrder string `json:"routingOrder"`
	Tabs         Tabs   `json:"tabs"`
}

// Tabs holds the signature field placements for a signer.
type Tabs struct {
	SignHereTabs []SignHere `json:"signHereTabs"`
}

// SignHere places a signature field relative to an anchor string in the
// document.
type SignHere struct {
	AnchorString  string `json:"anchorString"`
	AnchorUnits   string `json:"anchorUnits"`
	AnchorXOffset string `json:"anchorXOffset"`
	AnchorYOffset string `json:"anchorYOffset"`
}

// CarbonCopy is a recipient who receives the document without signing.
type CarbonCopy struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	RecipientID  string `json:"recipientId"`
	RoutingOrder string `json:"routingOrder"`
}

// Recipient pairs the opaque token issued for a recipient with the email it
// resolves to. The token travels to the provider as the recipientId and
// comes back in webhook events; the email never does, which is why the
// identity mapping must be stored before any webhook can be processed.
type Recipient struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// BuildEnvelopeDefinition assembles the provider envelope payload: the
// rendered HTML document with one anchored signature field per signer,
// signers in routing order, and carbon copies routed after all signers.
// Every recipient gets a freshly generated token as its recipientId.
func BuildEnvelopeDefinition(title string, signers, ccs []envelope.User, products []string) (EnvelopeDefinition, []Recipient) {
	recipients := make([]Recipient, 0, len(signers)+len(ccs))

	signerDefs := make([]Signer, 0, len(signers))
	for i, user := range signers {
		token := uuid.NewString()
		recipients = append(recipients, Recipient{ID: token, Email: user.Email})

		signerDefs = append(signerDefs, Signer{
			Email:        user.Email,
			Name:         user.Name,
			RecipientID:  token,
			RoutingOrder: strconv.Itoa(i + 1),
			Tabs: Tabs{
				SignHereTabs: []SignHere{
					{
						AnchorString:  user.Anchor(),
						AnchorUnits:   "pixels",
						AnchorXOffset: "20",
						AnchorYOffset: "10",
					},
				},
			},
		})
	}

	ccDefs := make([]CarbonCopy, 0, len(ccs))
	ccOrder := strconv.Itoa(len(signers) + 1)
	for _, user := range ccs {
		token := uuid.NewString()
		recipients = append(recipients, Recipient{ID: token, Email: user.Email})

		ccDefs = append(ccDefs, CarbonCopy{
			Email:        user.Email,
			Name:         user.Name,
			RecipientID:  token,
			RoutingOrder: ccOrder,
		})
	}

	doc := Document{
		DocumentBase64: base64.StdEncoding.EncodeToString([]byte(signingDocument(signers, ccs, products))),
		Name:           "Order acknowledgement",
		FileExtension:  "html",
		DocumentID:     "1",
	}

	return EnvelopeDefinition{
		EmailSubject: title,
		Documents:    []Document{doc},
		Recipients: Recipients{
			Signers:      signerDefs,
			CarbonCopies: ccDefs,
		},
		Status: "sent",
	}, recipients
}

// signingDocument renders the static order-acknowledgement HTML. Each
// signer's anchor is written in white ink so the provider can locate it
// without it being visible in the rendered document.
func signingDocument(signers, ccs []envelope.User, products []string) string {
	names := make([]string, 0, len(signers))
	emails := make([]string, 0, len(signers))
	for _, user := range signers {
		names = append(names, user.Name)
		emails = append(emails, user.Email)
	}

	ccEmails := make([]string, 0, len(ccs))
	for _, user := range ccs {
		ccEmails = append(ccEmails, user.Email)
	}

	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html>
  <head><meta charset="UTF-8"></head>
  <body style="font-family:sans-serif;margin-left:2em;">
    <h1 style="color:darkblue;margin-bottom:0;">World Wide Corp</h1>
    <h2 style="margin-top:0;margin-bottom:3.5em;font-size:1em;color:darkblue;">Order Processing Division</h2>
`)
	b.WriteString("    <h4>Ordered by " + strings.Join(names, ", ") + "</h4>\n")
	b.WriteString("    <p style=\"margin:0;\">Email: " + strings.Join(emails, ", ") + "</p>\n")
	b.WriteString("    <p style=\"margin:0;\">Copy to: " + strings.Join(ccEmails, ", ") + "</p>\n")

	if len(products) > 0 {
		b.WriteString("    <h4 style=\"margin-top:2em;\">Ordered products</h4>\n    <ul>\n")
		for _, product := range products {
			b.WriteString("      <li>" + product + "</li>\n")
		}
		b.WriteString("    </ul>\n")
	}

	b.WriteString("    <p style=\"margin-top:3em;\">Please acknowledge the order above by signing below.</p>\n")

	// The anchor text is white so it stays invisible in the rendered page.
	for _, user := range signers {
		b.WriteString("    <h3 style=\"margin-top:3em;\">Agreed: <span style=\"color:white;\">" + user.Anchor() + "/</span></h3>\n")
	}

	b.WriteString("  </body>\n</html>\n")
	return b.String()
}
