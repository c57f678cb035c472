// Package folder stores tiles as individual files laid out by a path template,
// such as `Pyramid\{0}\{2}\L{0}X{1}Y{2}.png`.
//
// Templates use positional placeholders: {0} is the level, {1} is x and {2}
// is y. Directory separators may be written as backslashes or slashes; both
// map to the OS separator on disk.
package folder

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/eak1mov/go-skytiles/tile"
)

var placeholders = [3]string{"{0}", "{1}", "{2}"}

// Pattern is a validated path template.
type Pattern struct {
	template string
	matcher  *regexp.Regexp
}

func ParsePattern(template string) (Pattern, error) {
	if template == "" {
		return Pattern{}, fmt.Errorf("%w: empty path template", tile.ErrInvalidArgument)
	}
	for _, p := range placeholders {
		if !strings.Contains(template, p) {
			return Pattern{}, fmt.Errorf("%w: placeholder %v not found in %q", tile.ErrInvalidArgument, p, template)
		}
	}

	// The first occurrence of each placeholder captures its value, repeated
	// ones only have to be numeric. Matches are confirmed by formatting back.
	expr := regexp.QuoteMeta(toSlash(template))
	for i, p := range placeholders {
		quoted := regexp.QuoteMeta(p)
		expr = strings.Replace(expr, quoted, fmt.Sprintf(`(?P<p%d>\d+)`, i), 1)
		expr = strings.ReplaceAll(expr, quoted, `\d+`)
	}
	matcher, err := regexp.Compile("^" + expr + "$")
	if err != nil {
		return Pattern{}, fmt.Errorf("%w: %w", tile.ErrInvalidArgument, err)
	}
	return Pattern{template: template, matcher: matcher}, nil
}

func (p Pattern) String() string {
	return p.template
}

// Format renders the template for a tile, keeping its separators as written.
func (p Pattern) Format(tileID tile.ID) string {
	return strings.NewReplacer(
		placeholders[0], strconv.FormatUint(uint64(tileID.Level), 10),
		placeholders[1], strconv.FormatUint(uint64(tileID.X), 10),
		placeholders[2], strconv.FormatUint(uint64(tileID.Y), 10),
	).Replace(p.template)
}

// FilePath returns the location of a tile file under rootDir.
func (p Pattern) FilePath(rootDir string, tileID tile.ID) string {
	return filepath.Join(rootDir, filepath.FromSlash(toSlash(p.Format(tileID))))
}

// parse recovers the tile from a path relative to the root, in slash form.
func (p Pattern) parse(relPath string) (tile.ID, bool) {
	matches := p.matcher.FindStringSubmatch(relPath)
	if matches == nil {
		return tile.ID{}, false
	}
	var values [3]uint32
	for i := range values {
		v, err := strconv.ParseUint(matches[p.matcher.SubexpIndex(fmt.Sprintf("p%d", i))], 10, 32)
		if err != nil {
			return tile.ID{}, false
		}
		values[i] = uint32(v)
	}
	tileID := tile.ID{Level: values[0], X: values[1], Y: values[2]}
	if !tileID.Valid() || toSlash(p.Format(tileID)) != relPath {
		return tile.ID{}, false
	}
	return tileID, true
}

func toSlash(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}
