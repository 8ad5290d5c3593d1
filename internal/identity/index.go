// Package identity resolves subject names extracted from overlay images
// against a reference operator dataset.
package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"golang.org/x/text/cases"

	"epconvert/internal/logging"
)

// Dataset file names under the data directory.
const (
	CharacterTableFile = "character_table.json"
	HandbookTableFile  = "handbookpos_table.json"
)

// classNames maps the dataset's small integer class codes to labels.
var classNames = map[int]string{
	512: "VANGUARD",
	1:   "GUARD",
	4:   "DEFENDER",
	32:  "CASTER",
	2:   "SNIPER",
	8:   "MEDIC",
	16:  "SUPPORTER",
	64:  "SPECIALIST",
}

// ClassName returns the class label for a dataset class code. Unmapped
// codes yield "UNKNOWN".
func ClassName(code int) string {
	if name, ok := classNames[code]; ok {
		return name
	}
	return "UNKNOWN"
}

// ClassIconFile returns the bundled icon file name for a class label.
func ClassIconFile(class string) string {
	return strings.ToLower(class) + ".png"
}

// Record is one subject entry of the reference dataset. Records are
// immutable once loaded.
type Record struct {
	ID            string
	Name          string
	LocalizedName string
	Code          string
	Nation        string
	Class         string
	Color         string
}

// Candidate pairs a record with its fuzzy similarity score (0-100).
type Candidate struct {
	Record *Record
	Score  int
}

// Match is the outcome of a combined exact/fuzzy resolution. When Exact is
// true, Candidates is empty; otherwise Candidates holds every fuzzy match
// that cleared the threshold, best first.
type Match struct {
	Record     *Record
	Exact      bool
	Candidates []Candidate
}

// Index owns the loaded dataset. It is built once, lazily, and is read-only
// afterward; reloading requires a fresh Index.
type Index struct {
	dataDir string

	once   sync.Once
	loaded bool

	records   map[string]*Record
	ids       []string // stable iteration order
	nameIndex map[string]string
	names     []string
}

// NewIndex creates an index that loads its dataset from dataDir on first
// use.
func NewIndex(dataDir string) *Index {
	return &Index{
		dataDir:   dataDir,
		records:   make(map[string]*Record),
		nameIndex: make(map[string]string),
	}
}

// Load reads the dataset. It is idempotent and safe for concurrent callers;
// the first call does the work, later calls return the cached verdict.
// A missing primary table or malformed JSON returns false and leaves the
// index empty, so callers can continue in degraded mode.
func (ix *Index) Load() bool {
	ix.once.Do(func() { ix.loaded = ix.build() })
	return ix.loaded
}

type characterTable struct {
	Characters map[string]struct {
		Appellation   string `json:"Appellation"`
		Name          string `json:"Name"`
		DisplayNumber string `json:"DisplayNumber"`
		NationID      string `json:"NationId"`
		Profession    int    `json:"Profession"`
	} `json:"Characters"`
}

type handbookTable struct {
	GroupList map[string]struct {
		ForceDataList []struct {
			Color    string   `json:"color"`
			CharList []string `json:"charList"`
		} `json:"forceDataList"`
	} `json:"groupList"`
}

func (ix *Index) build() bool {
	charPath := filepath.Join(ix.dataDir, CharacterTableFile)
	data, err := os.ReadFile(charPath)
	if err != nil {
		logging.Error("operator table unavailable", "path", charPath, "error", err)
		return false
	}

	var table characterTable
	if err := json.Unmarshal(data, &table); err != nil {
		logging.Error("operator table malformed", "path", charPath, "error", err)
		return false
	}

	colors := ix.loadColors()
	fold := cases.Fold()

	for id, info := range table.Characters {
		if !strings.HasPrefix(id, "char_") {
			continue
		}
		color, ok := colors[id]
		if !ok {
			color = "#ff0000"
		}
		rec := &Record{
			ID:            id,
			Name:          info.Appellation,
			LocalizedName: info.Name,
			Code:          info.DisplayNumber,
			Nation:        info.NationID,
			Class:         ClassName(info.Profession),
			Color:         color,
		}
		ix.records[id] = rec
		ix.ids = append(ix.ids, id)

		if rec.Name == "" {
			continue
		}
		folded := fold.String(rec.Name)
		if prev, dup := ix.nameIndex[folded]; dup {
			logging.Debug("duplicate operator name", "name", rec.Name, "id", id, "previous", prev)
		}
		ix.nameIndex[folded] = id
		ix.names = append(ix.names, rec.Name)
	}

	sort.Strings(ix.ids)
	logging.Info("operator dataset loaded", "operators", len(ix.records))
	return true
}

// loadColors reads the optional faction table mapping ids to accent colors.
func (ix *Index) loadColors() map[string]string {
	colors := make(map[string]string)

	path := filepath.Join(ix.dataDir, HandbookTableFile)
	data, err := os.ReadFile(path)
	if err != nil {
		logging.Warn("operator color table unavailable", "path", path, "error", err)
		return colors
	}

	var table handbookTable
	if err := json.Unmarshal(data, &table); err != nil {
		logging.Warn("operator color table malformed", "path", path, "error", err)
		return colors
	}

	for _, group := range table.GroupList {
		for _, force := range group.ForceDataList {
			color := force.Color
			if color == "" {
				color = "ff0000"
			}
			for _, id := range force.CharList {
				if strings.HasPrefix(id, "char_") {
					colors[id] = "#" + color
				}
			}
		}
	}
	return colors
}

// LookupExact finds a record by display name, case-insensitively.
func (ix *Index) LookupExact(name string) *Record {
	ix.Load()

	folded := cases.Fold().String(strings.TrimSpace(name))
	if id, ok := ix.nameIndex[folded]; ok {
		return ix.records[id]
	}
	return nil
}

// LookupFuzzy ranks all known display names by similarity to name, keeps
// those scoring at least threshold, and returns at most limit candidates in
// descending score order.
func (ix *Index) LookupFuzzy(name string, threshold, limit int) []Candidate {
	ix.Load()
	if len(ix.names) == 0 {
		return nil
	}

	fold := cases.Fold()
	query := fold.String(strings.TrimSpace(name))
	lev := metrics.NewLevenshtein()

	var matched []Candidate
	for _, known := range ix.names {
		score := int(strutil.Similarity(query, fold.String(known), lev) * 100)
		if score < threshold {
			continue
		}
		if id, ok := ix.nameIndex[fold.String(known)]; ok {
			matched = append(matched, Candidate{Record: ix.records[id], Score: score})
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Score != matched[j].Score {
			return matched[i].Score > matched[j].Score
		}
		return matched[i].Record.Name < matched[j].Record.Name
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

// Resolve combines exact and fuzzy lookup. An exact match wins
// unconditionally; otherwise the best fuzzy candidate (if any) is returned
// together with the full candidate list.
func (ix *Index) Resolve(name string, threshold, limit int) Match {
	if rec := ix.LookupExact(name); rec != nil {
		return Match{Record: rec, Exact: true}
	}

	candidates := ix.LookupFuzzy(name, threshold, limit)
	if len(candidates) == 0 {
		return Match{}
	}
	return Match{Record: candidates[0].Record, Candidates: candidates}
}

// Search does a free-text contains match over display name, localized name,
// and short code, in stable id order. It is meant for manual lookup UIs.
func (ix *Index) Search(keyword string, limit int) []*Record {
	ix.Load()

	fold := cases.Fold()
	query := fold.String(strings.TrimSpace(keyword))
	if query == "" {
		return nil
	}

	var results []*Record
	for _, id := range ix.ids {
		rec := ix.records[id]
		if strings.Contains(fold.String(rec.Name), query) ||
			strings.Contains(rec.LocalizedName, keyword) ||
			strings.Contains(fold.String(rec.Code), query) {
			results = append(results, rec)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
	}
	return results
}

// All returns every record in stable id order.
func (ix *Index) All() []*Record {
	ix.Load()

	out := make([]*Record, 0, len(ix.ids))
	for _, id := range ix.ids {
		out = append(out, ix.records[id])
	}
	return out
}

// Size returns the number of loaded records.
func (ix *Index) Size() int {
	ix.Load()
	return len(ix.records)
}

// String implements fmt.Stringer for log output.
func (ix *Index) String() string {
	return fmt.Sprintf("identity.Index(%d records)", len(ix.records))
}
