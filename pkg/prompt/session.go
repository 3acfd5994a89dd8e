package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/goliatone/go-productoptions/pkg/coordinator"
	"github.com/goliatone/go-productoptions/pkg/model"
	"github.com/goliatone/go-productoptions/pkg/pricing"
	"github.com/goliatone/go-productoptions/pkg/value"
)

// Option configures a Session.
type Option func(*Session)

// WithDriver overrides the prompt driver.
func WithDriver(driver Driver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithCatalog lets product options offer their referenced items.
func WithCatalog(catalog coordinator.Catalog) Option {
	return func(s *Session) {
		s.catalog = catalog
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAfterAnswer registers fn to run after every answered option with the
// submission collected so far.
func WithAfterAnswer(fn func(ctx context.Context, sub model.Submission)) Option {
	return func(s *Session) {
		s.after = fn
	}
}

// Session asks for every visible option of a group in declaration order and
// builds the submission. Visibility is re-evaluated after each answer so
// options gated on earlier answers appear or disappear as the user goes.
type Session struct {
	calc    *pricing.Calculator
	ectx    model.EvaluationContext
	driver  Driver
	catalog coordinator.Catalog
	after   func(ctx context.Context, sub model.Submission)
	logger  *slog.Logger
}

// NewSession prepares a session for the calculator's group.
func NewSession(calc *pricing.Calculator, ectx model.EvaluationContext, options ...Option) *Session {
	s := &Session{
		calc:   calc,
		ectx:   ectx,
		logger: slog.Default().With("component", "prompt"),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Run collects a submission. Values of options that end up hidden are dropped
// from the result.
func (s *Session) Run(ctx context.Context) (model.Submission, error) {
	if s.driver == nil {
		return model.Submission{}, ErrNoDriver
	}
	sub := model.Submission{
		Values:   map[string][]string{},
		Files:    map[string][]model.File{},
		Products: map[string]model.Item{},
	}

	for _, opt := range s.calc.Group().Options {
		visible, err := s.calc.Visibility().Decide(ctx, opt.ID, sub, s.ectx)
		if err != nil {
			return model.Submission{}, err
		}
		if !visible {
			s.logger.Debug("skipping hidden option", "option", opt.ID)
			continue
		}
		if err := s.ask(ctx, opt, &sub); err != nil {
			return model.Submission{}, fmt.Errorf("prompt: %s: %w", opt.ID, err)
		}
		if s.after != nil && opt.Type != model.OptionTypeFormula && opt.Type != model.OptionTypeHTML {
			s.after(ctx, sub)
		}
	}

	visibility := s.calc.Visibility().Map(ctx, sub, s.ectx)
	for id := range sub.Values {
		if !visibility[id] {
			delete(sub.Values, id)
		}
	}
	for id := range sub.Files {
		if !visibility[id] {
			delete(sub.Files, id)
		}
	}
	return sub, nil
}

func (s *Session) ask(ctx context.Context, opt model.Option, sub *model.Submission) error {
	label := labelOf(opt)
	switch {
	case opt.Type == model.OptionTypeFormula:
		return nil
	case opt.Type == model.OptionTypeHTML:
		return s.driver.Info(ctx, label)
	case opt.Type == model.OptionTypeNumber || opt.Type == model.OptionTypePrice:
		raw, err := s.driver.Input(ctx, InputConfig{
			Message:   label,
			Validator: s.numberValidator(opt),
		})
		if err != nil {
			return err
		}
		setValue(sub, opt.ID, raw)
	case opt.Type == model.OptionTypeText:
		raw, err := s.driver.Input(ctx, InputConfig{Message: label, Validator: requiredValidator(opt)})
		if err != nil {
			return err
		}
		setValue(sub, opt.ID, raw)
	case opt.Type == model.OptionTypeTextarea:
		raw, err := s.driver.TextArea(ctx, TextAreaConfig{Message: label})
		if err != nil {
			return err
		}
		setValue(sub, opt.ID, raw)
	case opt.Type == model.OptionTypeDate:
		raw, err := s.driver.Input(ctx, InputConfig{
			Message:   label,
			Help:      "YYYY-MM-DD",
			Validator: s.dateValidator(opt),
		})
		if err != nil {
			return err
		}
		setValue(sub, opt.ID, raw)
	case opt.Type.SingleChoice():
		return s.askChoice(ctx, opt, sub)
	case opt.Type.MultiChoice():
		return s.askChoices(ctx, opt, sub)
	case opt.Type == model.OptionTypeFile:
		raw, err := s.driver.Input(ctx, InputConfig{Message: label, Help: "comma separated file names"})
		if err != nil {
			return err
		}
		for _, name := range splitList(raw) {
			sub.Files[opt.ID] = append(sub.Files[opt.ID], model.File{Name: name})
		}
	case opt.Type == model.OptionTypeProduct:
		return s.askProducts(ctx, opt, sub)
	default:
		s.logger.Warn("unsupported option type", "option", opt.ID, "type", opt.Type)
	}
	return nil
}

func (s *Session) askChoice(ctx context.Context, opt model.Option, sub *model.Submission) error {
	labels := make([]string, 0, len(opt.Choices)+1)
	offset := 0
	if !opt.Required {
		labels = append(labels, "(none)")
		offset = 1
	}
	for _, choice := range opt.Choices {
		labels = append(labels, choiceLabel(choice))
	}
	idx, err := s.driver.Select(ctx, SelectConfig{Message: labelOf(opt), Options: labels})
	if err != nil {
		return err
	}
	idx -= offset
	if idx >= 0 && idx < len(opt.Choices) {
		setValue(sub, opt.ID, opt.Choices[idx].ID)
	}
	return nil
}

func (s *Session) askChoices(ctx context.Context, opt model.Option, sub *model.Submission) error {
	labels := make([]string, 0, len(opt.Choices))
	for _, choice := range opt.Choices {
		labels = append(labels, choiceLabel(choice))
	}
	picked, err := s.driver.MultiSelect(ctx, SelectConfig{Message: labelOf(opt), Options: labels})
	if err != nil {
		return err
	}
	var ids []string
	for _, idx := range picked {
		if idx >= 0 && idx < len(opt.Choices) {
			ids = append(ids, opt.Choices[idx].ID)
		}
	}
	if len(ids) > 0 {
		sub.Values[opt.ID] = ids
	}
	return nil
}

func (s *Session) askProducts(ctx context.Context, opt model.Option, sub *model.Submission) error {
	if s.catalog == nil || len(opt.Settings.ProductIDs) == 0 {
		return s.driver.Info(ctx, labelOf(opt)+": no products to choose from")
	}
	items := make([]model.Item, 0, len(opt.Settings.ProductIDs))
	labels := make([]string, 0, len(opt.Settings.ProductIDs))
	for _, id := range opt.Settings.ProductIDs {
		item, err := s.catalog.Item(ctx, id)
		if err != nil {
			s.logger.Warn("product unavailable", "option", opt.ID, "product", id, "error", err)
			continue
		}
		items = append(items, item)
		labels = append(labels, fmt.Sprintf("%s (%s)", nameOf(item), formatAmount(item.Price)))
	}

	var picked []int
	if opt.Settings.Multiple {
		got, err := s.driver.MultiSelect(ctx, SelectConfig{Message: labelOf(opt), Options: labels})
		if err != nil {
			return err
		}
		picked = got
	} else {
		got, err := s.driver.Select(ctx, SelectConfig{Message: labelOf(opt), Options: append([]string{"(none)"}, labels...)})
		if err != nil {
			return err
		}
		if got > 0 {
			picked = []int{got - 1}
		}
	}
	for _, idx := range picked {
		if idx < 0 || idx >= len(items) {
			continue
		}
		item := items[idx]
		sub.Values[opt.ID] = append(sub.Values[opt.ID], item.ID)
		sub.Products[item.ID] = item
	}
	return nil
}

func (s *Session) numberValidator(opt model.Option) func(string) error {
	return func(raw string) error {
		if strings.TrimSpace(raw) == "" {
			return requiredValidator(opt)(raw)
		}
		if _, ok := value.TryNumber(raw); !ok {
			return fmt.Errorf("%q is not a number", raw)
		}
		return nil
	}
}

func (s *Session) dateValidator(opt model.Option) func(string) error {
	return func(raw string) error {
		if strings.TrimSpace(raw) == "" {
			return requiredValidator(opt)(raw)
		}
		if _, ok := value.ParseDate(raw, s.ectx.Location); !ok {
			return fmt.Errorf("%q is not a date", raw)
		}
		return nil
	}
}

func requiredValidator(opt model.Option) func(string) error {
	return func(raw string) error {
		if opt.Required && strings.TrimSpace(raw) == "" {
			return fmt.Errorf("%s is required", labelOf(opt))
		}
		return nil
	}
}

func setValue(sub *model.Submission, optionID, raw string) {
	if strings.TrimSpace(raw) == "" {
		delete(sub.Values, optionID)
		return
	}
	sub.Values[optionID] = []string{raw}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func labelOf(opt model.Option) string {
	if opt.Label != "" {
		return opt.Label
	}
	return opt.ID
}

func nameOf(item model.Item) string {
	if item.Name != "" {
		return item.Name
	}
	return item.ID
}

func choiceLabel(choice model.Choice) string {
	label := choice.Label
	if label == "" {
		label = choice.ID
	}
	switch choice.PriceType {
	case model.PriceTypeFixed:
		return fmt.Sprintf("%s (+%s)", label, formatAmount(choice.PriceAmount))
	case model.PriceTypePercentage:
		return fmt.Sprintf("%s (+%s%%)", label, formatAmount(choice.PriceAmount))
	case model.PriceTypeQuantity:
		return fmt.Sprintf("%s (+%s each)", label, formatAmount(choice.PriceAmount))
	}
	return label
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
