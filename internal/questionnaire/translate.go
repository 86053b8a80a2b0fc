package questionnaire

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/mesh-intelligence/happi/pkg/types"
)

const keyPrefix = "pcdssetup"

// kind describes how one family of questionnaire entries becomes items.
type kind struct {
	name        string
	deviceClass string
	fields      map[string]string // questionnaire field -> record key
}

// kinds are translated in this order; it decides which of two entries with
// the same name is kept.
var kinds = []kind{
	{
		name:        "motors",
		deviceClass: "pcdsdevices.happi.containers.Motor",
		fields: map[string]string{
			"name":          "name",
			"pvbase":        "prefix",
			"purpose":       "documentation",
			"location":      "location",
			"stageidentity": "stageidentity",
		},
	},
	{
		name:        "trig",
		deviceClass: "pcdsdevices.happi.containers.Trigger",
		fields: map[string]string{
			"name":      "name",
			"pvbase":    "prefix",
			"purpose":   "documentation",
			"delay":     "delay",
			"eventcode": "eventcode",
			"polarity":  "polarity",
			"width":     "width",
		},
	},
	{
		name:        "ao",
		deviceClass: "pcdsdevices.happi.containers.Acromag",
		fields: map[string]string{
			"name":    "name",
			"pvbase":  "prefix",
			"purpose": "documentation",
			"device":  "device",
			"channel": "channel",
		},
	},
	{
		name:        "ai",
		deviceClass: "pcdsdevices.happi.containers.Acromag",
		fields: map[string]string{
			"name":    "name",
			"pvbase":  "prefix",
			"purpose": "documentation",
			"device":  "device",
			"channel": "channel",
		},
	},
}

// group is one numbered entry of a kind, e.g. every pcdssetup-motors-3-*.
type group struct {
	kind   int
	n      int
	fields map[string]string
}

// groups collects flattened keys of the form pcdssetup-<kind>-<n>-<field>.
// Keys of unknown kinds or with a non-numeric index are ignored. The result
// is sorted by kind order then index.
func groups(details map[string]string) []group {
	index := make(map[string]int, len(kinds))
	for i, k := range kinds {
		index[k.name] = i
	}
	byKey := make(map[[2]int]*group)
	for key, value := range details {
		parts := strings.SplitN(key, "-", 4)
		if len(parts) != 4 || parts[0] != keyPrefix {
			continue
		}
		ki, ok := index[parts[1]]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(parts[2])
		if err != nil {
			continue
		}
		g, ok := byKey[[2]int{ki, n}]
		if !ok {
			g = &group{kind: ki, n: n, fields: make(map[string]string)}
			byKey[[2]int{ki, n}] = g
		}
		g.fields[parts[3]] = value
	}
	out := make([]group, 0, len(byKey))
	for _, g := range byKey {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].kind != out[j].kind {
			return out[i].kind < out[j].kind
		}
		return out[i].n < out[j].n
	})
	return out
}

// translate builds one OphydItem record from g. It reports false when the
// entry lacks a name or a PV base.
func translate(g group, beamline string) (types.Record, bool) {
	k := kinds[g.kind]
	name := ItemName(g.fields["name"])
	prefix := g.fields["pvbase"]
	if name == "" || prefix == "" {
		return nil, false
	}
	rec := types.Record{
		types.IDKey:    name,
		types.NameKey:  name,
		types.TypeKey:  "OphydItem",
		"device_class": k.deviceClass,
		"args":         []any{"{{prefix}}"},
		"kwargs":       map[string]any{"name": "{{name}}"},
	}
	for field, value := range g.fields {
		key, ok := k.fields[field]
		if !ok || key == types.NameKey || value == "" {
			continue
		}
		rec[key] = value
	}
	if beamline != "" {
		rec["beamline"] = beamline
	}
	return rec, true
}

// ItemName lowercases s and replaces every rune that is not a letter or
// digit with an underscore.
func ItemName(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
