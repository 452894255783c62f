package report

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chaosgate/chaosgate-go/pkg/types"
	"github.com/pkg/errors"
)

// WriteJSON renders the group report as indented JSON.
func WriteJSON(w io.Writer, g types.GroupReport) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return errors.Errorf("fail to marshal the group report, err: %v", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return errors.Errorf("fail to write the group report, err: %v", err)
	}
	return nil
}

// Save writes the report to the given path, picking the format from the
// extension: .md renders markdown, anything else JSON.
func Save(path string, g types.GroupReport) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Errorf("fail to create the report file, err: %v", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".md") {
		if _, err := io.WriteString(f, RenderMarkdown(g)); err != nil {
			return errors.Errorf("fail to write the report file, err: %v", err)
		}
		return nil
	}
	return WriteJSON(f, g)
}
