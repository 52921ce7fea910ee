package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const a55URL = "https://www.gsmarena.com/samsung_galaxy_a55-12824.php"

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(b)
}

func TestExtract_FullPage(t *testing.T) {
	d := Extract(loadFixture(t, "detail_full.html"), a55URL)

	require.Equal(t, "Samsung Galaxy A55", d.Name)
	require.Equal(t, "About 420 EUR", d.Price)
	require.Equal(t, "6.6 inches, 106.9 cm2, 1080 x 2340 pixels, 19.5:9 ratio, Super AMOLED, 120Hz, 1000 nits (HBM)", d.Display)
	require.Equal(t, "Exynos 1480 (4 nm)", d.Processor)
	require.Equal(t, "8GB/12GB", d.RAM)
	require.Equal(t, "128GB/256GB", d.Storage)
	require.Equal(t, "50 MP, f/1.8, (wide), PDAF, OIS; 12 MP, f/2.2, 123˚ (ultrawide); 5 MP, f/2.4, (macro)", d.MainCamera)
	require.Equal(t, "Li-Ion 5000 mAh", d.Battery)
	require.Equal(t, "https://www.gsmarena.com/vv/bigpic/samsung-galaxy-a55.jpg", d.Image)
	require.Equal(t, "2024, March 11", d.Announced)
	require.Equal(t, a55URL, d.URL)
	require.Equal(t, "Samsung", d.Brand)
	require.NotNil(t, d.PriceValue)
	require.Equal(t, 420.0, *d.PriceValue)
	require.Empty(t, Missing(d))
}

func TestExtract_MissingRAM(t *testing.T) {
	d := Extract(loadFixture(t, "detail_no_ram.html"), a55URL)

	require.Equal(t, "", d.RAM)
	require.Equal(t, "128GB/256GB", d.Storage)
	require.Equal(t, "Samsung Galaxy A55", d.Name)
	require.Equal(t, "About 420 EUR", d.Price)
	require.NotEmpty(t, d.Display)
	require.Equal(t, "Exynos 1480 (4 nm)", d.Processor)
	require.NotEmpty(t, d.MainCamera)
	require.Equal(t, "Li-Ion 5000 mAh", d.Battery)
	require.Equal(t, []string{FieldRAM}, Missing(d))
}

func TestExtract_LabelFallback(t *testing.T) {
	d := Extract(loadFixture(t, "detail_labels_only.html"), "https://www.gsmarena.com/nokia_3310-192.php")

	require.Equal(t, "Nokia 3310", d.Name)
	require.Equal(t, "About 30 EUR", d.Price)
	require.Equal(t, "1.5 inches, 84 x 48 pixels, Monochrome graphic", d.Display)
	require.Equal(t, "Unknown", d.Processor)
	require.Equal(t, "None", d.RAM)
	require.Equal(t, "40 contacts", d.Storage)
	require.Equal(t, "No", d.MainCamera)
	require.Equal(t, "Removable NiMH 900 mAh", d.Battery)
	require.Equal(t, "2000, September", d.Announced)
	require.Equal(t, "https://fdn2.gsmarena.com/vv/bigpic/nokia-3310.jpg", d.Image)
}

func TestExtract_Idempotent(t *testing.T) {
	page := loadFixture(t, "detail_full.html")
	first := Extract(page, a55URL)
	second := Extract(page, a55URL)
	require.Equal(t, first, second)
}

func TestExtract_NeverFails(t *testing.T) {
	inputs := map[string]string{
		"empty":     "",
		"text":      "not html at all",
		"truncated": `<html><div id="specs-list"><table><tr><th>Memory<td class="nfo" data-spec="internalmemory">64GB 4GB`,
		"binary":    "\x00\xff\xfe<<<>>>",
		"nested":    `<table><table><table><th></th></table>`,
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			require.NotPanics(t, func() {
				d := Extract(in, "::bad url")
				require.Equal(t, "::bad url", d.URL)
			})
		})
	}
}

func TestExtract_EmptyPageLeavesFieldsEmpty(t *testing.T) {
	d := Extract("<html><body><p>Nothing here</p></body></html>", a55URL)
	require.Len(t, Missing(d), 8)
	require.Nil(t, d.PriceValue)
}

func TestNew_RejectsBadRules(t *testing.T) {
	_, err := New([]FieldRule{{Field: "colour", Parts: []Part{{sel("p")}}}})
	require.Error(t, err)

	_, err = New([]FieldRule{{Field: FieldName, Parts: []Part{{sel("h1[")}}}})
	require.Error(t, err)
}

func TestNew_CustomRules(t *testing.T) {
	e, err := New([]FieldRule{
		{Field: FieldName, Parts: []Part{{sel(".model")}}},
		{Field: FieldRAM, Parts: []Part{{sel(".ram")}}},
	})
	require.NoError(t, err)

	d := e.Extract(`<div class="model">Pixel 9</div><span class="ram">12 GB</span>`, "https://example.com/p")
	require.Equal(t, "Pixel 9", d.Name)
	require.Equal(t, "12 GB", d.RAM)
}

func TestSplitMemory(t *testing.T) {
	tests := []struct {
		in      string
		storage string
		ram     string
	}{
		{"128GB 8GB RAM, 256GB 12GB RAM", "128GB/256GB", "8GB/12GB"},
		{"64GB 4GB RAM, 128GB 4GB RAM", "64GB/128GB", "4GB"},
		{"1TB 16GB RAM", "1TB", "16GB"},
		{"256 GB 8 GB RAM", "256GB", "8GB"},
		{"128GB, 256GB", "128GB/256GB", ""},
		{"", "", ""},
		{"No card slot", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			storage, ram := splitMemory(tt.in)
			require.Equal(t, tt.storage, storage)
			require.Equal(t, tt.ram, ram)
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Li-Ion   5000 mAh  ", "Li-Ion 5000 mAh"},
		{"a\n\n  b  \n", "a; b"},
		{" x  y", "x y"},
		{"", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Normalize(tt.in))
	}
}
