package extractor

// Field names used by rule tables and reported by Missing.
const (
	FieldName       = "name"
	FieldPrice      = "price"
	FieldDisplay    = "display"
	FieldProcessor  = "processor"
	FieldRAM        = "ram"
	FieldStorage    = "storage"
	FieldMainCamera = "main_camera"
	FieldBattery    = "battery"
	FieldImage      = "image"
	FieldAnnounced  = "announced"
)

// Rule locates one value. Selector, when set, is a CSS selector whose first
// non-empty match wins; Attr reads an attribute instead of the text.
// Otherwise the rule looks up the spec table row titled Label under the
// section headed Section (both case-insensitive; an empty Label takes the
// section's first row).
type Rule struct {
	Selector string
	Attr     string
	Section  string
	Label    string
}

// Part is an ordered list of alternative rules; the first that yields a
// value wins.
type Part []Rule

// FieldRule extracts one Device field. The field's value is the non-empty
// part values joined with ", ".
type FieldRule struct {
	Field string
	Parts []Part
}

func sel(s string) Rule { return Rule{Selector: s} }

func attr(s, a string) Rule { return Rule{Selector: s, Attr: a} }

func label(section, title string) Rule { return Rule{Section: section, Label: title} }

// DefaultRules describe GSMArena detail pages.
func DefaultRules() []FieldRule {
	return []FieldRule{
		{Field: FieldName, Parts: []Part{{
			sel("h1.specs-phone-name-title"),
			sel("[data-spec=modelname]"),
		}}},
		{Field: FieldPrice, Parts: []Part{{
			sel("[data-spec=price]"),
			label("Misc", "Price"),
			sel(".price"),
		}}},
		{Field: FieldDisplay, Parts: []Part{
			{sel("[data-spec=displaysize]"), label("Display", "Size")},
			{sel("[data-spec=displayresolution]"), label("Display", "Resolution")},
			{sel("[data-spec=displaytype]"), label("Display", "Type")},
		}},
		{Field: FieldProcessor, Parts: []Part{{
			sel("[data-spec=chipset]"),
			label("Platform", "Chipset"),
			sel("[data-spec=cpu]"),
			label("Platform", "CPU"),
		}}},
		{Field: FieldRAM, Parts: []Part{{
			label("Memory", "RAM"),
		}}},
		{Field: FieldStorage, Parts: []Part{{
			label("Memory", "Storage"),
		}}},
		{Field: FieldMainCamera, Parts: []Part{{
			sel("[data-spec=cam1modules]"),
			label("Main Camera", ""),
		}}},
		{Field: FieldBattery, Parts: []Part{{
			sel("[data-spec=batdescription1]"),
			label("Battery", "Type"),
		}}},
		{Field: FieldImage, Parts: []Part{{
			attr(".specs-photo-main img", "src"),
		}}},
		{Field: FieldAnnounced, Parts: []Part{{
			sel("[data-spec=year]"),
			label("Launch", "Announced"),
		}}},
	}
}

// internalMemoryRule locates the combined storage/RAM summary used when the
// page has no dedicated RAM or Storage rows.
var internalMemoryRule = Part{
	sel("[data-spec=internalmemory]"),
	label("Memory", "Internal"),
}
