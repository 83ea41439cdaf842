package usecase

import (
	"fmt"
	"strings"

	"github.com/stugorf/hdc-digest/internal/domain"
)

// RenderDigest formats the kept items of a digest as plain text.
func RenderDigest(d domain.Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "HDC digest %s\n", d.Date)

	if len(d.TopThemes) > 0 {
		b.WriteString("\nThemes:\n")
		for _, theme := range d.TopThemes {
			fmt.Fprintf(&b, "- %s\n", theme)
		}
	}

	if d.CountKept() == 0 {
		b.WriteString("\nNo new items today.\n")
		return b.String()
	}

	for _, section := range d.Sections {
		if len(section.Items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s\n", section.Name)
		for _, item := range section.Items {
			fmt.Fprintf(&b, "- %s\n", item.Title)
			if meta := itemMeta(item); meta != "" {
				fmt.Fprintf(&b, "  %s\n", meta)
			}
			if item.Summary != "" {
				fmt.Fprintf(&b, "  %s\n", item.Summary)
			}
			fmt.Fprintf(&b, "  %s\n", item.URL)
		}
	}
	return b.String()
}

func itemMeta(item domain.Item) string {
	parts := make([]string, 0, 2)
	if item.Publisher != "" {
		parts = append(parts, item.Publisher)
	}
	if item.PublishedDate != "" {
		parts = append(parts, item.PublishedDate)
	}
	return strings.Join(parts, " · ")
}
