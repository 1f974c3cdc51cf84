// Package selection turns the remote package catalog and the ordered filter
// rules of the configuration into the working set of a run.
package selection

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog/log"

	"github.com/harness/cpi-sync/module/cpi/types"
	"github.com/harness/cpi-sync/util/common/errors"
)

type matcher interface {
	MatchString(s string) bool
}

type globMatcher struct {
	g glob.Glob
}

func (m globMatcher) MatchString(s string) bool {
	return m.g.Match(s)
}

// Select folds rules left to right over the catalog. Regex and glob rules add
// or remove every matching id, single rules add or remove one id that must
// exist in the catalog. Later rules override earlier ones, and an empty rule
// list selects nothing. The result is sorted, so it does not depend on the
// order of the catalog.
func Select(catalog []types.CatalogEntry, rules []types.FilterRule) (types.WorkingSet, error) {
	ids := make([]string, 0, len(catalog))
	known := make(map[string]struct{}, len(catalog))
	byName := make(map[string][]string)
	for _, entry := range catalog {
		if _, dup := known[entry.ID]; !dup {
			ids = append(ids, entry.ID)
		}
		known[entry.ID] = struct{}{}
		byName[entry.Name] = append(byName[entry.Name], entry.ID)
	}
	sort.Strings(ids)

	selected := make(map[string]struct{})

	for i, rule := range rules {
		logger := log.With().Int("rule_index", i).Str("rule", rule.String()).Logger()

		switch rule.Type {
		case types.RuleRegex, types.RuleGlob:
			m, err := compile(rule)
			if err != nil {
				return nil, err
			}
			matched := 0
			for _, id := range ids {
				if !m.MatchString(id) {
					continue
				}
				matched++
				apply(selected, rule.Operation, id)
			}
			logger.Debug().Int("matched", matched).Int("selected", len(selected)).Msg("Applied pattern rule")

		case types.RuleSingle:
			if _, ok := known[rule.ID]; !ok {
				hints := append([]string(nil), byName[rule.ID]...)
				sort.Strings(hints)
				logger.Warn().Strs("name_hints", hints).Msg("Package ID not found")
				return nil, &errors.UnknownPackageError{ID: rule.ID, NameHints: hints}
			}
			apply(selected, rule.Operation, rule.ID)
			logger.Debug().Int("selected", len(selected)).Msg("Applied single rule")

		default:
			return nil, errors.NewValidationError(fmt.Sprintf("filter_rules[%d].type", i),
				fmt.Sprintf("unsupported rule type: %s", rule.Type))
		}
	}

	ws := make(types.WorkingSet, 0, len(selected))
	for id := range selected {
		ws = append(ws, id)
	}
	sort.Strings(ws)
	return ws, nil
}

func compile(rule types.FilterRule) (matcher, error) {
	if rule.Type == types.RuleGlob {
		g, err := glob.Compile(rule.Pattern)
		if err != nil {
			return nil, &errors.PatternError{Pattern: rule.Pattern, Wrapped: err}
		}
		return globMatcher{g: g}, nil
	}
	re, err := regexp.Compile(rule.Pattern)
	if err != nil {
		return nil, &errors.PatternError{Pattern: rule.Pattern, Wrapped: err}
	}
	return re, nil
}

func apply(set map[string]struct{}, op types.Operation, id string) {
	if op == types.Exclude {
		delete(set, id)
		return
	}
	set[id] = struct{}{}
}
