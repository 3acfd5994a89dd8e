package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-productoptions/pkg/binding"
	"github.com/goliatone/go-productoptions/pkg/formula"
	"github.com/goliatone/go-productoptions/pkg/model"
	"github.com/goliatone/go-productoptions/pkg/value"
)

type checker struct {
	group    model.Group
	resolver *value.Resolver
	seen     map[string]int
	issues   []Issue
}

func (c *checker) report(severity Severity, optionID, field, format string, args ...any) {
	c.issues = append(c.issues, Issue{
		OptionID: optionID,
		Field:    field,
		Severity: severity,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (c *checker) errorf(optionID, field, format string, args ...any) {
	c.report(SeverityError, optionID, field, format, args...)
}

func (c *checker) warnf(optionID, field, format string, args ...any) {
	c.report(SeverityWarning, optionID, field, format, args...)
}

func (c *checker) option(idx int, opt model.Option) {
	if prev, dup := c.seen[opt.ID]; dup && opt.ID != "" {
		c.errorf(opt.ID, "id", "duplicate option id (also declared at position %d)", prev+1)
	}
	c.seen[opt.ID] = idx

	c.structRules(opt)
	if opt.Type != "" && !opt.Type.Known() {
		c.errorf(opt.ID, "type", "unsupported option type %q", opt.Type)
	}

	if opt.Type.SingleChoice() || opt.Type.MultiChoice() {
		c.choices(opt)
	}
	if opt.Type == model.OptionTypeFormula {
		c.formula(opt)
	}
	if opt.ConditionalLogic != nil {
		c.conditions(opt)
	}
}

func (c *checker) structRules(opt model.Option) {
	err := Struct(opt)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		c.errorf(opt.ID, "", "%v", err)
		return
	}
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		if fe.Param() != "" {
			c.errorf(opt.ID, field, "failed %q rule (%s)", fe.Tag(), fe.Param())
			continue
		}
		c.errorf(opt.ID, field, "failed %q rule", fe.Tag())
	}
}

func (c *checker) choices(opt model.Option) {
	if len(opt.Choices) == 0 {
		c.warnf(opt.ID, "choices", "choice option has no choices")
		return
	}
	ids := make(map[string]bool, len(opt.Choices))
	for i, choice := range opt.Choices {
		if choice.ID == "" {
			continue
		}
		if ids[choice.ID] {
			c.errorf(opt.ID, fmt.Sprintf("choices[%d].id", i), "duplicate choice id %q", choice.ID)
		}
		ids[choice.ID] = true
	}
}

func (c *checker) formula(opt model.Option) {
	f := opt.Formula()
	if f == nil {
		c.errorf(opt.ID, "settings.formula", "formula option has no formula")
		return
	}

	names := make(map[string]bool, len(f.Variables)+len(f.CustomVariables))
	known := make([]string, 0, len(f.Variables))
	for i, v := range f.Variables {
		field := fmt.Sprintf("settings.formula.variables[%d]", i)
		key := v.Key()
		if key != "" && names[key] {
			c.errorf(opt.ID, field+".name", "duplicate variable %q", v.Name)
		}
		names[key] = true
		known = append(known, key)
		c.variable(opt, v, field)
	}

	declared := make(map[string]int, len(f.CustomVariables))
	for i, cv := range f.CustomVariables {
		declared[strings.ToLower(strings.TrimSpace(cv.Name))] = i
	}
	for i, cv := range f.CustomVariables {
		field := fmt.Sprintf("settings.formula.customVariables[%d]", i)
		name := strings.ToLower(strings.TrimSpace(cv.Name))
		if name != "" && names[name] {
			c.errorf(opt.ID, field+".name", "custom variable %q shadows another variable", cv.Name)
		}
		names[name] = true

		refs, err := formula.References(cv.Formula)
		if err != nil {
			c.errorf(opt.ID, field+".formula", "%v", err)
			continue
		}
		for _, ref := range refs {
			if j, ok := declared[ref]; ok && j >= i {
				c.errorf(opt.ID, field+".formula", "references custom variable %q which is not declared before it", ref)
			}
		}
	}

	if strings.TrimSpace(f.Expression) == "" {
		return
	}
	for _, err := range formula.Check(binding.Expand(*f), known) {
		c.errorf(opt.ID, "settings.formula.expression", "%v", err)
	}
}

func (c *checker) variable(owner model.Option, v model.Variable, field string) {
	if v.Kind == model.VariableKindProperty {
		if !knownProperty(v.OptionID) {
			c.errorf(owner.ID, field+".optionId", "unknown item property %q", v.OptionID)
		}
		return
	}
	if v.OptionID == "" {
		return
	}
	ref, ok := c.group.Option(v.OptionID)
	if !ok {
		c.errorf(owner.ID, field+".optionId", "references unknown option %q", v.OptionID)
		return
	}
	if v.Kind != "" && !kindBinds(v.Kind, ref.Type) {
		c.errorf(owner.ID, field+".kind", "a %s variable cannot bind %s option %q", v.Kind, ref.Type, ref.ID)
		return
	}
	path := strings.TrimSpace(v.Path)
	if path == "" {
		path = c.resolver.DefaultPath(ref)
	}
	if _, ok := c.resolver.Neutral(ref).Path(path); !ok {
		c.errorf(owner.ID, field+".path", "path %q does not select a number on option %q", v.Path, ref.ID)
	}
}

func (c *checker) conditions(opt model.Option) {
	for i, cond := range opt.ConditionalLogic.Conditions {
		field := fmt.Sprintf("conditionalLogic.conditions[%d]", i)
		target := strings.TrimSpace(cond.OptionID)
		if target == "" {
			continue
		}
		if model.IsItemProperty(target) {
			if dateOperator(cond.Operator) {
				c.errorf(opt.ID, field+".operator", "%s cannot compare item property %q", cond.Operator, target)
			}
			c.numericLiteral(opt.ID, field, cond)
			continue
		}
		ref, ok := c.group.Option(target)
		if !ok {
			c.errorf(opt.ID, field+".optionId", "references unknown option %q", target)
			continue
		}
		if ref.Type == model.OptionTypeHTML {
			c.warnf(opt.ID, field+".optionId", "display-only option %q never has a value", target)
		}

		switch {
		case dateOperator(cond.Operator):
			if ref.Type != model.OptionTypeDate {
				c.errorf(opt.ID, field+".operator", "%s requires a date option, %q is %s", cond.Operator, target, ref.Type)
				continue
			}
			if _, ok := value.ParseDate(cond.Value, time.UTC); !ok {
				c.errorf(opt.ID, field+".value", "%q is not a date", cond.Value)
			}
		case cond.Operator == model.OperatorGreater || cond.Operator == model.OperatorLess:
			if ref.MultiValued() {
				c.errorf(opt.ID, field+".operator", "%s is not supported on multi-valued option %q", cond.Operator, target)
				continue
			}
			c.numericLiteral(opt.ID, field, cond)
		}
	}
}

func (c *checker) numericLiteral(optionID, field string, cond model.Condition) {
	if cond.Operator != model.OperatorGreater && cond.Operator != model.OperatorLess {
		return
	}
	if _, ok := value.TryNumber(cond.Value); !ok {
		c.errorf(optionID, field+".value", "%s needs a numeric value, got %q", cond.Operator, cond.Value)
	}
}

func dateOperator(op model.Operator) bool {
	switch op {
	case model.OperatorDateEquals, model.OperatorDateNotEquals, model.OperatorDateGreater, model.OperatorDateLess:
		return true
	}
	return false
}

func knownProperty(id string) bool {
	name := model.PropertyName(strings.ToLower(strings.TrimSpace(id)))
	switch name {
	case value.PropertyPrice, value.PropertyWeight, value.PropertyWidth,
		value.PropertyLength, value.PropertyHeight, value.PropertyQuantity:
		return true
	}
	_, ok := model.AttributeName(name)
	return ok
}

func kindBinds(kind model.VariableKind, t model.OptionType) bool {
	switch kind {
	case model.VariableKindNumber:
		return t == model.OptionTypeNumber || t == model.OptionTypePrice
	case model.VariableKindChoice:
		return t.SingleChoice() || t.MultiChoice()
	case model.VariableKindText:
		return t == model.OptionTypeText || t == model.OptionTypeTextarea
	case model.VariableKindDate:
		return t == model.OptionTypeDate
	case model.VariableKindFile:
		return t == model.OptionTypeFile
	case model.VariableKindProduct:
		return t == model.OptionTypeProduct
	case model.VariableKindFormula:
		return t == model.OptionTypeFormula
	default:
		return false
	}
}
