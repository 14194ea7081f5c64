// Package suggest proposes categories for unlabeled transactions using a
// naive-Bayes classifier trained on the already-categorized ledger. A
// suggestion is advice for the review flow only; it never creates rules and
// never writes a category itself.
package suggest

import (
	"errors"
	"sort"

	"github.com/jbrukh/bayesian"

	"github.com/finsight-dev/finsight/internal/model"
	"github.com/finsight-dev/finsight/internal/normalize"
)

// ErrTooFewCategories means the ledger does not yet have enough labeled
// variety to train on. At least two distinct categories are required.
var ErrTooFewCategories = errors.New("need at least two labeled categories to train suggester")

// Suggestion is one ranked category proposal.
type Suggestion struct {
	Category string
	Score    float64
}

// Suggester wraps a trained classifier.
type Suggester struct {
	classes    []bayesian.Class
	classifier *bayesian.Classifier
}

// Train builds a suggester from the categorized portion of the ledger.
// Transfers and uncategorized transactions contribute nothing.
func Train(txns []model.Transaction) (*Suggester, error) {
	seen := make(map[string]bool)
	for _, t := range txns {
		if !t.Categorized() || t.IsTransfer() {
			continue
		}
		seen[t.Category] = true
	}
	if len(seen) < 2 {
		return nil, ErrTooFewCategories
	}

	categories := make([]string, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	classes := make([]bayesian.Class, len(categories))
	for i, c := range categories {
		classes[i] = bayesian.Class(c)
	}

	cl := bayesian.NewClassifierTfIdf(classes...)
	for _, t := range txns {
		if !t.Categorized() || t.IsTransfer() {
			continue
		}
		terms := normalize.Fields(t.Description)
		if len(terms) == 0 {
			continue
		}
		cl.Learn(terms, bayesian.Class(t.Category))
	}
	cl.ConvertTermsFreqToTfIdf()

	return &Suggester{classes: classes, classifier: cl}, nil
}

// Suggest returns up to max ranked category proposals for a transaction.
// An empty result means the description carried no usable terms.
func (s *Suggester) Suggest(txn model.Transaction, max int) []Suggestion {
	terms := normalize.Fields(txn.Description)
	if len(terms) == 0 {
		return nil
	}

	scores, _, _ := s.classifier.LogScores(terms)
	suggestions := make([]Suggestion, len(scores))
	for i, score := range scores {
		suggestions[i] = Suggestion{Category: string(s.classes[i]), Score: score}
	}
	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].Category < suggestions[j].Category
	})
	if max > 0 && len(suggestions) > max {
		suggestions = suggestions[:max]
	}
	return suggestions
}
