package help

import (
	"context"
	_ "embed"
	"fmt"

	faqstore "github.com/dalemusser/camphub/internal/app/store/faqs"
	"github.com/dalemusser/camphub/internal/domain/models"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed faqs.yaml
var defaultFAQs []byte

type seedFAQ struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
	Category string `yaml:"category"`
	Order    int    `yaml:"order"`
	Audience string `yaml:"audience"`
}

// DefaultFAQs parses the embedded FAQ set.
func DefaultFAQs() ([]models.FAQ, error) {
	var rows []seedFAQ
	if err := yaml.Unmarshal(defaultFAQs, &rows); err != nil {
		return nil, fmt.Errorf("parse default faqs: %w", err)
	}
	out := make([]models.FAQ, 0, len(rows))
	for i, r := range rows {
		if !models.IsFAQCategory(r.Category) || !models.IsFAQAudience(r.Audience) {
			return nil, fmt.Errorf("default faq %d: bad category %q or audience %q", i, r.Category, r.Audience)
		}
		out = append(out, models.FAQ{
			Question: r.Question,
			Answer:   r.Answer,
			Category: r.Category,
			Order:    r.Order,
			Audience: r.Audience,
			IsActive: true,
		})
	}
	return out, nil
}

// Seed inserts the default FAQs when the collection is empty.
func Seed(ctx context.Context, store *faqstore.Store, log *zap.Logger) error {
	faqs, err := DefaultFAQs()
	if err != nil {
		return err
	}
	n, err := store.SeedIfEmpty(ctx, faqs)
	if err != nil {
		return fmt.Errorf("seed faqs: %w", err)
	}
	if n > 0 {
		log.Info("seeded default FAQs", zap.Int("count", n))
	}
	return nil
}
