package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/graphdesk/server/internal/domain"
)

// Export serializes a session in the requested format. JSON returns the raw
// session; markdown renders a human-readable transcript and graph summary.
func (s *Service) Export(ctx context.Context, sessionID string, format domain.ExportFormat) (*domain.Export, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch format {
	case domain.ExportFormatJSON:
		return &domain.Export{
			Format:      domain.ExportFormatJSON,
			ContentType: "application/json",
			Data:        session,
		}, nil
	case domain.ExportFormatMarkdown:
		return &domain.Export{
			Format:      domain.ExportFormatMarkdown,
			ContentType: "text/markdown",
			Data:        renderMarkdown(session),
		}, nil
	default:
		return nil, domain.NewValidationError("format", "must be json or markdown")
	}
}

func renderMarkdown(session *domain.Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", session.Name)
	if session.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", session.Description)
	}
	fmt.Fprintf(&b, "- Version: %s\n", domain.FormatVersion(session.Version))
	fmt.Fprintf(&b, "- Created: %s\n", session.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&b, "- Updated: %s\n", session.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"))
	if session.TranscriptID != "" {
		fmt.Fprintf(&b, "- Transcript: %s\n", session.TranscriptID)
	}

	b.WriteString("\n## Conversation\n\n")
	if len(session.Messages) == 0 {
		b.WriteString("_No messages._\n")
	}
	for _, m := range session.Messages {
		fmt.Fprintf(&b, "**%s**: %s\n\n", m.Sender, m.Text)
	}

	fmt.Fprintf(&b, "## Graph\n\n### Nodes (%d)\n\n", len(session.GraphData.Nodes))
	for _, n := range session.GraphData.Nodes {
		if n.Type != "" {
			fmt.Fprintf(&b, "- `%s` (%s)\n", n.ID, n.Type)
		} else {
			fmt.Fprintf(&b, "- `%s`\n", n.ID)
		}
	}
	fmt.Fprintf(&b, "\n### Links (%d)\n\n", len(session.GraphData.Links))
	for _, l := range session.GraphData.Links {
		if l.Type != "" {
			fmt.Fprintf(&b, "- `%s` -> `%s` (%s)\n", l.SourceID, l.TargetID, l.Type)
		} else {
			fmt.Fprintf(&b, "- `%s` -> `%s`\n", l.SourceID, l.TargetID)
		}
	}
	return b.String()
}
