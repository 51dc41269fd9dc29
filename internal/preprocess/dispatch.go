package preprocess

import (
	"log/slog"
	"maps"
	"strings"
	"sync/atomic"

	"golang.org/x/text/cases"

	"git.home.luguber.info/inful/txbridge/internal/logfields"
	"git.home.luguber.info/inful/txbridge/internal/manifest"
)

// DefaultStrategy is the registry name of the identity copy.
const DefaultStrategy = "default"

// DefaultResourceAliases collapses legacy resource identifiers into the
// categories strategies are registered under.
var DefaultResourceAliases = map[string]string{
	"ulb":   "bible",
	"udb":   "bible",
	"reg":   "bible",
	"bible": "bible",
	"obs":   "obs",
	"tn":    "help",
	"tq":    "help",
	"tw":    "help",
	"ta":    "help",
}

// DispatchKey selects a strategy.
type DispatchKey struct {
	Generator string
	Resource  string
	Format    string
}

// String concatenates the tokens in fixed order: generator, resource, format.
func (k DispatchKey) String() string {
	return k.Generator + k.Resource + k.Format
}

// withoutResource is the second lookup candidate.
func (k DispatchKey) withoutResource() string {
	return k.Generator + k.Format
}

var registry = map[string]Constructor{
	DefaultStrategy: newCopyStrategy,
	"bibleusfm":     newUSFMStrategy,
	"tsbibleusfm":   newTSUSFMStrategy,
	"tsusfm":        newTSUSFMStrategy,
	"obsmd":         newMarkdownStrategy,
	"md":            newMarkdownStrategy,
	"tsobsmd":       newTSOBSStrategy,
	"tshelpmd":      newTSHelpStrategy,
}

// Dispatcher maps dispatch keys to strategies. The alias table can be
// replaced at runtime; lookups see either the old or the new table.
type Dispatcher struct {
	aliases atomic.Pointer[map[string]string]
}

// NewDispatcher creates a dispatcher whose alias table is overrides merged
// over DefaultResourceAliases.
func NewDispatcher(overrides map[string]string) *Dispatcher {
	d := &Dispatcher{}
	d.SetAliases(overrides)
	return d
}

// SetAliases replaces the alias overrides.
func (d *Dispatcher) SetAliases(overrides map[string]string) {
	table := maps.Clone(DefaultResourceAliases)
	for k, v := range overrides {
		table[fold(k)] = fold(v)
	}
	d.aliases.Store(&table)
}

// Aliases returns a copy of the active alias table.
func (d *Dispatcher) Aliases() map[string]string {
	return maps.Clone(*d.aliases.Load())
}

// Key builds a case-folded dispatch key, collapsing the resource through
// the alias table.
func (d *Dispatcher) Key(generator, resource, format string) DispatchKey {
	r := fold(resource)
	if alias, ok := (*d.aliases.Load())[r]; ok {
		r = alias
	}
	return DispatchKey{
		Generator: fold(generator),
		Resource:  r,
		Format:    fold(manifest.NormalizeFormat(format)),
	}
}

// KeyFor builds the dispatch key for a resolved repository.
func (d *Dispatcher) KeyFor(res *manifest.Resolution) DispatchKey {
	return d.Key(res.Generator, res.Manifest.ResourceID(), res.Manifest.Format)
}

// Dispatch returns the strategy for key bound to the given directories.
// It never fails: unknown keys get the default copy strategy.
func (d *Dispatcher) Dispatch(key DispatchKey, m *manifest.Manifest, inDir, outDir string) Strategy {
	b := Binding{Manifest: m, InDir: inDir, OutDir: outDir}
	name := Lookup(key)
	if name == DefaultStrategy {
		slog.Info("No specific strategy registered, copying tree", slog.String("key", key.String()))
	}
	s := registry[name](b)
	slog.Debug("Strategy selected", logfields.Strategy(s.Name()), slog.String("key", key.String()))
	return s
}

// Lookup resolves key to a registry name: exact key, then the key without
// resource, then DefaultStrategy.
func Lookup(key DispatchKey) string {
	if _, ok := registry[key.String()]; ok {
		return key.String()
	}
	if _, ok := registry[key.withoutResource()]; ok {
		return key.withoutResource()
	}
	return DefaultStrategy
}

// fold case-folds a token. Casers are not safe for concurrent use, so a
// fresh one is made per call.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
