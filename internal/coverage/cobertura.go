package coverage

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Decode reads a Cobertura document and calls fn for every <source>, <class>
// and <line> element in document order. Other elements are skipped.
func Decode(r io.Reader, fn func(Event) error) error {
	dec := xml.NewDecoder(r)
	var (
		inSource bool
		source   strings.Builder
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedReport, err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "source":
				inSource = true
				source.Reset()
			case "class":
				if err := fn(Event{Kind: EventClass, Path: attr(el, "filename")}); err != nil {
					return err
				}
			case "line":
				ev, err := lineEvent(el)
				if err != nil {
					return err
				}
				if err := fn(ev); err != nil {
					return err
				}
			}
		case xml.CharData:
			if inSource {
				source.Write(el)
			}
		case xml.EndElement:
			if el.Name.Local == "source" && inSource {
				inSource = false
				if root := strings.TrimSpace(source.String()); root != "" {
					if err := fn(Event{Kind: EventSource, Path: root}); err != nil {
						return err
					}
				}
			}
		}
	}
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func lineEvent(el xml.StartElement) (Event, error) {
	ev := Event{Kind: EventLine, Number: -1}
	if v := attr(el, "number"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return ev, fmt.Errorf("%w: line number %q", ErrMalformedReport, v)
		}
		ev.Number = n
	}
	v := attr(el, "hits")
	if v == "" {
		if ev.Number > 0 {
			return ev, fmt.Errorf("%w: line %d has no hits", ErrMalformedReport, ev.Number)
		}
		return ev, nil
	}
	hits, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return ev, fmt.Errorf("%w: hits %q on line %d", ErrMalformedReport, v, ev.Number)
	}
	ev.Hits = hits
	return ev, nil
}

// ReadReport feeds one Cobertura report file into b as a new fragment.
func ReadReport(path string, b *Builder) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening coverage report: %w", err)
	}
	defer f.Close()

	b.BeginFragment()
	if err := Decode(f, b.Apply); err != nil {
		return fmt.Errorf("reading coverage report %s: %w", path, err)
	}
	return nil
}
