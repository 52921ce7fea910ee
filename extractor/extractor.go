// Package extractor turns a device detail page into a models.Device using a
// table of field rules. It never fails: fields it cannot locate stay empty.
package extractor

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	readability "github.com/go-shiori/go-readability"

	"github.com/use-agent/smartpick/models"
)

// titleSuffixes are stripped from the page <title> when it stands in for
// the device name.
var titleSuffixes = []string{
	" - Full phone specifications",
	" - GSMArena.com",
	" | GSMArena.com",
}

type compiledRule struct {
	Rule
	matcher cascadia.Selector
}

type compiledField struct {
	field string
	parts [][]compiledRule
}

// Extractor applies a compiled rule table. It holds no per-page state and
// is safe for concurrent use.
type Extractor struct {
	fields   []compiledField
	internal []compiledRule
}

// New compiles rules. It fails on an unknown field or an invalid selector.
func New(rules []FieldRule) (*Extractor, error) {
	e := &Extractor{}
	for _, fr := range rules {
		if _, ok := setters[fr.Field]; !ok {
			return nil, fmt.Errorf("extractor: unknown field %q", fr.Field)
		}
		cf := compiledField{field: fr.Field}
		for _, part := range fr.Parts {
			cp, err := compilePart(part)
			if err != nil {
				return nil, fmt.Errorf("extractor: field %s: %w", fr.Field, err)
			}
			cf.parts = append(cf.parts, cp)
		}
		e.fields = append(e.fields, cf)
	}
	internal, err := compilePart(internalMemoryRule)
	if err != nil {
		return nil, err
	}
	e.internal = internal
	return e, nil
}

func compilePart(part Part) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(part))
	for _, r := range part {
		cr := compiledRule{Rule: r}
		if r.Selector != "" {
			m, err := cascadia.Compile(r.Selector)
			if err != nil {
				return nil, fmt.Errorf("selector %q: %w", r.Selector, err)
			}
			cr.matcher = m
		}
		out = append(out, cr)
	}
	return out, nil
}

var defaultExtractor = func() *Extractor {
	e, err := New(DefaultRules())
	if err != nil {
		panic(err)
	}
	return e
}()

// Default returns the extractor for GSMArena detail pages.
func Default() *Extractor { return defaultExtractor }

// Extract parses a detail page with the default rules.
func Extract(rawHTML, pageURL string) models.Device {
	return defaultExtractor.Extract(rawHTML, pageURL)
}

// setters write a field value into a Device.
var setters = map[string]func(*models.Device, string){
	FieldName:       func(d *models.Device, v string) { d.Name = v },
	FieldPrice:      func(d *models.Device, v string) { d.Price = v },
	FieldDisplay:    func(d *models.Device, v string) { d.Display = v },
	FieldProcessor:  func(d *models.Device, v string) { d.Processor = v },
	FieldRAM:        func(d *models.Device, v string) { d.RAM = v },
	FieldStorage:    func(d *models.Device, v string) { d.Storage = v },
	FieldMainCamera: func(d *models.Device, v string) { d.MainCamera = v },
	FieldBattery:    func(d *models.Device, v string) { d.Battery = v },
	FieldImage:      func(d *models.Device, v string) { d.Image = v },
	FieldAnnounced:  func(d *models.Device, v string) { d.Announced = v },
}

// page is the per-call parse state.
type page struct {
	doc   *goquery.Document
	base  *url.URL
	specs map[string]string // "section|label" -> value
}

// Extract parses rawHTML into a Device. It never panics and never fails;
// unlocated fields are "". pageURL resolves relative image links and is
// copied into Device.URL.
func (e *Extractor) Extract(rawHTML, pageURL string) (dev models.Device) {
	dev.URL = pageURL
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("extractor: recovered from panic, returning partial record",
				"url", pageURL, "panic", r)
			dev.Derive()
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		slog.Debug("extractor: unparseable page", "url", pageURL, "error", err)
		return dev
	}
	p := &page{doc: doc, specs: specTable(doc)}
	if u, err := url.Parse(pageURL); err == nil {
		p.base = u
	}

	for _, f := range e.fields {
		var values []string
		for _, part := range f.parts {
			if v := p.first(part); v != "" {
				values = append(values, v)
			}
		}
		setters[f.field](&dev, strings.Join(values, ", "))
	}

	if dev.RAM == "" || dev.Storage == "" {
		storage, ram := splitMemory(p.first(e.internal))
		if dev.Storage == "" {
			dev.Storage = storage
		}
		if dev.RAM == "" {
			dev.RAM = ram
		}
	}
	if dev.Name == "" {
		dev.Name = titleName(doc, rawHTML, p.base)
	}
	if dev.Image != "" && p.base != nil {
		if u, err := p.base.Parse(dev.Image); err == nil {
			dev.Image = u.String()
		}
	}

	dev.Derive()
	for _, field := range Missing(dev) {
		slog.Debug("extractor: field not found", "url", pageURL, "field", field)
	}
	return dev
}

// first returns the value of the first rule in part that yields one.
func (p *page) first(part []compiledRule) string {
	for _, r := range part {
		if v := p.apply(r); v != "" {
			return v
		}
	}
	return ""
}

func (p *page) apply(r compiledRule) string {
	if r.matcher == nil {
		return p.specs[specKey(r.Section, r.Label)]
	}
	var value string
	p.doc.FindMatcher(r.matcher).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if r.Attr != "" {
			value = strings.TrimSpace(s.AttrOr(r.Attr, ""))
		} else {
			value = selectionText(s)
		}
		return value == ""
	})
	return value
}

func specKey(section, label string) string {
	return strings.ToLower(section) + "|" + strings.ToLower(label)
}

// specTable indexes the "#specs-list" tables by section header and row
// title. The first row of each section is also stored under an empty
// label.
func specTable(doc *goquery.Document) map[string]string {
	specs := make(map[string]string)
	doc.Find("#specs-list table").Each(func(_ int, table *goquery.Selection) {
		section := Normalize(table.Find("th").First().Text())
		if section == "" {
			return
		}
		first := true
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			nfo := row.Find("td.nfo").First()
			if nfo.Length() == 0 {
				return
			}
			value := selectionText(nfo)
			if value == "" {
				return
			}
			if first {
				specs[specKey(section, "")] = value
				first = false
			}
			ttl := Normalize(row.Find("td.ttl").First().Text())
			if ttl == "" {
				return
			}
			if _, dup := specs[specKey(section, ttl)]; !dup {
				specs[specKey(section, ttl)] = value
			}
		})
	})
	return specs
}

// titleName derives the device name from the page title, then from
// readability's title detection.
func titleName(doc *goquery.Document, rawHTML string, base *url.URL) string {
	if name := trimTitle(Normalize(doc.Find("title").First().Text())); name != "" {
		return name
	}
	if base == nil {
		return ""
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), base)
	if err != nil {
		return ""
	}
	return trimTitle(Normalize(article.Title))
}

func trimTitle(title string) string {
	for _, suffix := range titleSuffixes {
		title = strings.TrimSuffix(title, suffix)
	}
	return strings.TrimSpace(title)
}

// Missing lists the core fields of d that are empty, in record order.
func Missing(d models.Device) []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{FieldName, d.Name},
		{FieldPrice, d.Price},
		{FieldDisplay, d.Display},
		{FieldProcessor, d.Processor},
		{FieldRAM, d.RAM},
		{FieldStorage, d.Storage},
		{FieldMainCamera, d.MainCamera},
		{FieldBattery, d.Battery},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
