package project

import (
	"encoding/xml"
	"io"
	"os"
	"strings"

	"github.com/Iron-Ham/idecore/internal/errors"
)

// Doap is the subset of a DOAP (Description Of A Project) document used for
// display and for grouping recent projects.
type Doap struct {
	Name        string   `xml:"name"`
	ShortDesc   string   `xml:"shortdesc"`
	Description string   `xml:"description"`
	Homepage    resource `xml:"homepage"`
	BugDatabase resource `xml:"bug-database"`
	Languages   []string `xml:"programming-language"`
	Maintainers []struct {
		Person Person `xml:"Person"`
	} `xml:"maintainer"`
}

// Person is a foaf:Person.
type Person struct {
	Name string   `xml:"name"`
	Mbox resource `xml:"mbox"`
}

// Email returns the address without the mailto: scheme.
func (p Person) Email() string {
	return strings.TrimPrefix(p.Mbox.Resource, "mailto:")
}

type resource struct {
	Resource string `xml:"resource,attr"`
}

// HomepageURL returns the rdf:resource of the homepage element.
func (d *Doap) HomepageURL() string {
	return d.Homepage.Resource
}

// People returns the maintainers.
func (d *Doap) People() []Person {
	out := make([]Person, 0, len(d.Maintainers))
	for _, m := range d.Maintainers {
		out = append(out, m.Person)
	}
	return out
}

// LoadDoap parses the DOAP file at path.
func LoadDoap(path string) (*Doap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()
	return ParseDoap(f)
}

// ParseDoap reads a DOAP document. The Project element may be the root or
// wrapped in rdf:RDF.
func ParseDoap(r io.Reader) (*Doap, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, errors.NewInvalidDataError("doap", "no Project element")
		}
		if err != nil {
			return nil, errors.NewInvalidDataError("doap", err.Error()).WithCause(err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "Project" {
			continue
		}

		var d Doap
		if err := dec.DecodeElement(&d, &start); err != nil {
			return nil, errors.NewInvalidDataError("doap", err.Error()).WithCause(err)
		}
		d.Name = strings.TrimSpace(d.Name)
		d.ShortDesc = strings.TrimSpace(d.ShortDesc)
		d.Description = strings.TrimSpace(d.Description)
		for i, lang := range d.Languages {
			d.Languages[i] = strings.TrimSpace(lang)
		}
		return &d, nil
	}
}
