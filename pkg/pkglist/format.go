package pkglist

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

const separatorWidth = 80

var (
	separator      = strings.Repeat("=", separatorWidth)
	separatorLight = strings.Repeat("-", separatorWidth)
)

// String renders the package as a single license notice block.
func (p Package) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n\n", separator)
	writePackage(&buf, p)
	return buf.String()
}

// String renders the whole list as a plain-text third-party notice.
func (l PackageList) String() string {
	var buf bytes.Buffer
	_, _ = l.WriteTo(&buf)
	return buf.String()
}

// WriteTo writes the plain-text notice for every package to w.
func (l PackageList) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n\n", separator)
	for _, p := range l {
		writePackage(&buf, p)
	}
	return buf.WriteTo(w)
}

func writePackage(buf *bytes.Buffer, p Package) {
	fmt.Fprintf(buf, "Package:     %s %s\n", p.Name, p.Version)
	if p.Description != nil {
		fmt.Fprintf(buf, "Description: %s\n", *p.Description)
	}
	for i, author := range p.Authors {
		if i == 0 {
			fmt.Fprintf(buf, "Authors:     - %s\n", author)
			continue
		}
		fmt.Fprintf(buf, "             - %s\n", author)
	}
	if p.Homepage != nil {
		fmt.Fprintf(buf, "Homepage:    %s\n", *p.Homepage)
	}
	if p.Repository != nil {
		fmt.Fprintf(buf, "Repository:  %s\n", *p.Repository)
	}
	if p.LicenseIdentifier != nil {
		fmt.Fprintf(buf, "SPDX Ident:  %s\n", *p.LicenseIdentifier)
	}
	if p.LicenseText != nil {
		fmt.Fprintf(buf, "\n%s\n%s\n", separatorLight, *p.LicenseText)
	}
	fmt.Fprintf(buf, "\n%s\n\n", separator)
}

// Markdown renders the list as a markdown document, one section per crate.
func (l PackageList) Markdown() string {
	var b strings.Builder
	b.WriteString("# Third-party licenses\n\n")
	for _, p := range l {
		fmt.Fprintf(&b, "## %s %s\n\n", p.Name, p.Version)
		if p.Description != nil {
			fmt.Fprintf(&b, "%s\n\n", *p.Description)
		}
		if id := p.License(); id != "" {
			fmt.Fprintf(&b, "- **License:** `%s`\n", id)
		}
		if len(p.Authors) > 0 {
			fmt.Fprintf(&b, "- **Authors:** %s\n", strings.Join(p.Authors, ", "))
		}
		if p.Repository != nil {
			fmt.Fprintf(&b, "- **Repository:** <%s>\n", *p.Repository)
		}
		if p.LicenseText != nil {
			fmt.Fprintf(&b, "\n```text\n%s\n```\n", strings.TrimRight(*p.LicenseText, "\n"))
		}
		b.WriteString("\n")
	}
	return b.String()
}
