package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const DefaultSheetName = "Media Metadata"

// sheetNamer produces unique, valid worksheet names for folders. Worksheet
// names are compared case-insensitively by spreadsheet applications, so
// uniqueness is tracked the same way.
type sheetNamer struct {
	used map[string]struct{}
}

func newSheetNamer() *sheetNamer {
	return &sheetNamer{used: make(map[string]struct{})}
}

// SheetName converts a folder path to a valid worksheet name: path
// separators become '__', any other character which is not permitted in
// a worksheet name becomes '_', and the result is truncated to the
// maximum worksheet name length.
func SheetName(folder string) string {
	name := strings.ReplaceAll(filepath.ToSlash(folder), "/", "__")
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\?*[]`, r) {
			return '_'
		}
		return r
	}, name)

	// Leading or trailing apostrophes are reserved.
	if strings.HasPrefix(name, "'") {
		name = "_" + name[1:]
	}
	name = truncateRunes(name, excelize.MaxSheetNameLength)
	if strings.HasSuffix(name, "'") {
		name = name[:len(name)-1] + "_"
	}

	if name == "" {
		return "_"
	}

	return name
}

// next returns the worksheet name for the folder provided, suffixing it
// with '~N' if the name has already been handed out.
func (n *sheetNamer) next(folder string) string {
	base := SheetName(folder)
	name := base
	for i := 2; n.taken(name); i++ {
		suffix := fmt.Sprintf("~%d", i)
		name = truncateRunes(base, excelize.MaxSheetNameLength-len(suffix)) + suffix
	}

	n.used[strings.ToLower(name)] = struct{}{}
	return name
}

func (n *sheetNamer) taken(name string) bool {
	_, ok := n.used[strings.ToLower(name)]
	return ok
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	runes := []rune(s)
	return string(runes[:max])
}
