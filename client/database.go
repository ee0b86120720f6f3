package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/waleedsbi/atm-master/internal/models"
)

// DatabaseService handles backup, restore and table browsing.
type DatabaseService struct {
	c *Client
}

func backupPath(tables []string) string {
	path := "/api/v1/database/backup"
	if len(tables) > 0 {
		path += "?" + url.Values{"tables": {strings.Join(tables, ",")}}.Encode()
	}
	return path
}

// BackupTo streams a snapshot of the selected tables (all when empty) into w
// and returns the file name suggested by the server.
func (s *DatabaseService) BackupTo(ctx context.Context, tables []string, w io.Writer) (string, error) {
	resp, err := s.c.send(ctx, http.MethodGet, backupPath(tables), nil, "")
	if err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("backup: reading snapshot: %w", err)
	}

	name := ""
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		name = params["filename"]
	}

	return name, nil
}

// Backup returns a decoded snapshot of the selected tables.
func (s *DatabaseService) Backup(ctx context.Context, tables []string) (*SnapshotDocument, error) {
	var buf bytes.Buffer
	if _, err := s.BackupTo(ctx, tables, &buf); err != nil {
		return nil, err
	}

	doc, err := models.DecodeSnapshot(&buf)
	if err != nil {
		return nil, fmt.Errorf("backup: %w", err)
	}

	return doc, nil
}

// Restore uploads a snapshot read from r. Table failures are reported in
// the response, not as an error.
func (s *DatabaseService) Restore(ctx context.Context, r io.Reader, filename string, opts RestoreOptions) (*RestoreResponse, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeRestoreForm(mw, r, filename, opts))
	}()

	resp, err := s.c.send(ctx, http.MethodPost, "/api/v1/database/restore", pr, mw.FormDataContentType())
	if err != nil {
		pr.CloseWithError(err)
		return nil, fmt.Errorf("restore: %w", err)
	}
	defer resp.Body.Close()

	var out RestoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("restore: decode response: %w", err)
	}

	return &out, nil
}

func writeRestoreForm(mw *multipart.Writer, r io.Reader, filename string, opts RestoreOptions) error {
	if opts.Mode != "" {
		if err := mw.WriteField("mode", string(opts.Mode)); err != nil {
			return err
		}
	}

	if len(opts.Tables) > 0 {
		tables, err := json.Marshal(opts.Tables)
		if err != nil {
			return err
		}
		if err := mw.WriteField("tables", string(tables)); err != nil {
			return err
		}
	}

	if filename == "" {
		filename = "backup.json"
	}

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}

	if _, err := io.Copy(fw, r); err != nil {
		return err
	}

	return mw.Close()
}

// Tables lists the tables of the configured schema with their row counts.
func (s *DatabaseService) Tables(ctx context.Context) ([]TableInfo, error) {
	var resp struct {
		Tables []TableInfo `json:"tables"`
	}
	if err := s.c.get(ctx, "/api/v1/database/tables", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tables, nil
}

// DescribeTable returns the columns and keys of one table.
func (s *DatabaseService) DescribeTable(ctx context.Context, name string) (*TableSchema, error) {
	var ts TableSchema
	if err := s.c.get(ctx, "/api/v1/database/tables/"+url.PathEscape(name), nil, &ts); err != nil {
		return nil, err
	}
	return &ts, nil
}
