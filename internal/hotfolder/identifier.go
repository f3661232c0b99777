package hotfolder

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"hotfolder/internal/services"
)

// ParsedIdentifier is derived from a batch folder name.
type ParsedIdentifier struct {
	// CatalogID is the raw primary token, placeholder characters intact.
	CatalogID string
	// Scanner is the optional secondary token after the first separator.
	Scanner string
	// Title is the folder name with placeholders replaced by the separator.
	Title string
}

// NameRules describes the folder naming convention.
type NameRules struct {
	Separator   string
	Placeholder string
}

// DefaultNameRules matches folders such as 89$140210016_ScannerA.
var DefaultNameRules = NameRules{Separator: "_", Placeholder: "$"}

// ParseIdentifier splits name on the first separator. Names are normalized to
// NFC first since some scanner stations write decomposed Unicode.
func ParseIdentifier(name string, rules NameRules) (ParsedIdentifier, error) {
	if rules.Separator == "" {
		rules = DefaultNameRules
	}
	name = norm.NFC.String(strings.TrimSpace(name))
	shape := fmt.Sprintf("<catalog-id>%s<scanner-name>", rules.Separator)

	idx := strings.Index(name, rules.Separator)
	if idx < 0 {
		return ParsedIdentifier{}, services.Wrap(services.ErrValidation, "parse", "",
			fmt.Sprintf("folder name %q does not contain %q; expected %s, e.g. 89$140210016%sScannerABC", name, rules.Separator, shape, rules.Separator), nil)
	}
	if idx == 0 {
		return ParsedIdentifier{}, services.Wrap(services.ErrValidation, "parse", "",
			fmt.Sprintf("folder name %q has an empty catalog id; expected %s", name, shape), nil)
	}

	title := name
	if rules.Placeholder != "" {
		title = strings.ReplaceAll(name, rules.Placeholder, rules.Separator)
	}
	return ParsedIdentifier{
		CatalogID: name[:idx],
		Scanner:   name[idx+len(rules.Separator):],
		Title:     title,
	}, nil
}
