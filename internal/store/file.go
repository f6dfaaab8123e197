package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"esign-gateway/internal/common/logging"
	"esign-gateway/internal/envelope"
)

// document is the on-disk layout of the store: a single JSON object with the
// envelope mapping and the recipient token mapping.
type document struct {
	Envelopes map[string]*envelope.Envelope `json:"envelopes"`
	Users     map[string]string             `json:"users"`
}

// Load reads the store document from path. A missing or malformed file is a
// fatal startup condition; the service has no meaningful default state to
// run with, so the caller is expected to abort rather than serve traffic.
func Load(path string, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read store file %s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse store file %s: %w", path, err)
	}

	if doc.Envelopes == nil {
		doc.Envelopes = make(map[string]*envelope.Envelope)
	}
	if doc.Users == nil {
		doc.Users = make(map[string]string)
	}

	logger.Info("Envelope store loaded",
		logging.String("path", path),
		logging.Int("envelopes", len(doc.Envelopes)),
		logging.Int("recipients", len(doc.Users)),
	)

	return &Store{
		envelopes: doc.Envelopes,
		users:     doc.Users,
		path:      path,
		logger:    logger,
	}, nil
}

// Init writes an empty store document to path. It refuses to overwrite an
// existing file so provisioning a fresh store is always an explicit act.
func Init(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("store file %s already exists", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat store file %s: %w", path, err)
	}

	empty := document{
		Envelopes: make(map[string]*envelope.Envelope),
		Users:     make(map[string]string),
	}

	data, err := json.MarshalIndent(empty, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal empty store: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// save rewrites the whole document. The write goes to a temp file in the
// same directory followed by a rename, so a crash mid-write never leaves a
// truncated store behind. Callers must hold the write lock.
func (s *Store) save() error {
	doc := document{
		Envelopes: s.envelopes,
		Users:     s.users,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".store-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp store file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace store file: %w", err)
	}

	return nil
}
