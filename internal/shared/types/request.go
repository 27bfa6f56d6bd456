package types

import (
	"github.com/bytedance/sonic"
)

// CreateDirectoryRequest creates Name inside Path.
type CreateDirectoryRequest struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// DeleteRequest removes a single item. IsDirectory must match the item kind.
type DeleteRequest struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	IsDirectory bool   `json:"isDirectory"`
}

// DeleteManyRequest removes several items under one parent.
type DeleteManyRequest struct {
	Names []string `json:"names"`
	Path  string   `json:"path"`
}

// MoveRequest renames Source to Destination. Both are root-relative.
type MoveRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// ArchiveRequest packs entries of Path into a new archive inside Path.
// Clients send the entry list as either "items" or "files" and the format
// as either "archiveType" or "format".
type ArchiveRequest struct {
	ArchiveName string    `json:"archiveName"`
	ArchiveType string    `json:"archiveType"`
	Format      string    `json:"format"`
	Items       EntryList `json:"items"`
	Files       EntryList `json:"files"`
	Path        string    `json:"path"`
}

// Entries returns whichever entry list the client populated.
func (r *ArchiveRequest) Entries() []string {
	if len(r.Items) > 0 {
		return r.Items
	}
	return r.Files
}

// FormatName returns the requested archive format.
func (r *ArchiveRequest) FormatName() string {
	if r.ArchiveType != "" {
		return r.ArchiveType
	}
	return r.Format
}

// EntryList decodes a JSON array whose elements are either names or
// objects carrying a "name" field. Elements of any other shape are dropped.
type EntryList []string

func (l *EntryList) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(EntryList, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case map[string]any:
			if name, ok := v["name"].(string); ok {
				out = append(out, name)
			}
		}
	}
	*l = out
	return nil
}
