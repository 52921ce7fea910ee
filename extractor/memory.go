package extractor

import (
	"regexp"
	"strings"
)

var (
	sizeRe    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(TB|GB|MB)`)
	ramSuffix = regexp.MustCompile(`(?i)^\s*RAM\b`)
)

// splitMemory derives storage and RAM from an internal-memory summary such
// as "128GB 8GB RAM, 256GB 12GB RAM". Each comma-separated variant
// contributes its first size as storage and the size followed by "RAM" as
// RAM. Values are de-duplicated in order and joined with "/".
func splitMemory(internal string) (storage, ram string) {
	var storages, rams []string
	for _, variant := range strings.FieldsFunc(internal, func(r rune) bool { return r == ',' || r == ';' }) {
		var variantStorage string
		for _, m := range sizeRe.FindAllStringSubmatchIndex(variant, -1) {
			size := variant[m[2]:m[3]] + strings.ToUpper(variant[m[4]:m[5]])
			if ramSuffix.MatchString(variant[m[1]:]) {
				rams = appendUnique(rams, size)
				continue
			}
			if variantStorage == "" {
				variantStorage = size
			}
		}
		if variantStorage != "" {
			storages = appendUnique(storages, variantStorage)
		}
	}
	return strings.Join(storages, "/"), strings.Join(rams, "/")
}

func appendUnique(list []string, v string) []string {
	for _, have := range list {
		if have == v {
			return list
		}
	}
	return append(list, v)
}
