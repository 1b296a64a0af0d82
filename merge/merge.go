// Copyright 2025 Juan Font
// BSD-3-Clause

// Package merge walks credential structures and asks the operator for the
// values that are missing or need review.
package merge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/juanfont/pgvm/jsondoc"
	"github.com/juanfont/pgvm/profile"
	"github.com/pkg/errors"
)

// Prompter is the console the merges talk to. *prompt.Console implements it.
type Prompter interface {
	Say(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Highlight(v interface{}) string
	Label(format string, args ...interface{}) string
	Ask(label string) (string, error)
	AskSecret(label string) (string, error)
	Confirm(label string) (bool, error)
}

const maskedValue = "********"

// Verify walks base and asks for every value, offering the one already in
// existing (or the base default) as the answer kept on an empty reply.
// Keys only present in existing are preserved. existing is not modified.
func Verify(existing, base *jsondoc.Object, p Prompter) (*jsondoc.Object, error) {
	if existing == nil {
		existing = jsondoc.NewObject()
	}
	updated := existing.Clone()

	for _, key := range base.Keys() {
		value, _ := base.Get(key)

		switch v := value.(type) {
		case *jsondoc.Object:
			sub, _ := existing.Object(key)
			merged, err := Verify(sub, v, p)
			if err != nil {
				return nil, err
			}
			updated.Set(key, merged)

		case []interface{}:
			current := valueOr(existing, key, v)
			p.Say("Existing value for %s: %s", key, p.Highlight(current))
			p.Say("Enter values for %s (comma-separated). Leave empty to keep the existing list:", key)
			answer, err := ask(p, key, "> ")
			if err != nil {
				return nil, errors.Wrapf(err, "value for %s", key)
			}
			if answer != "" {
				updated.Set(key, SplitList(answer))
			} else {
				updated.Set(key, jsondoc.Clone(current))
			}

		default:
			current := valueOr(existing, key, v)
			p.Say("Existing value for %s: %s", key, p.Highlight(display(key, current)))
			answer, err := ask(p, key, fmt.Sprintf("Provide updated value for %s (leave empty to keep existing): ", key))
			if err != nil {
				return nil, errors.Wrapf(err, "value for %s", key)
			}
			if answer != "" {
				updated.Set(key, answer)
			} else {
				updated.Set(key, jsondoc.Clone(current))
			}
		}
	}

	return updated, nil
}

// Template adds every key of template that base lacks, asking for values
// where the template only carries a placeholder. Values already in base are
// never overwritten. base is modified in place; the returned object maps the
// dotted path of every added key to the value written.
func Template(template, base *jsondoc.Object, p Prompter) (*jsondoc.Object, error) {
	changes := jsondoc.NewObject()
	if err := mergeTemplate(template, base, "", changes, p); err != nil {
		return nil, err
	}
	return changes, nil
}

func mergeTemplate(template, base *jsondoc.Object, path string, changes *jsondoc.Object, p Prompter) error {
	for _, key := range template.Keys() {
		value, _ := template.Get(key)
		fullPath := key
		if path != "" {
			fullPath = path + "." + key
		}

		current, exists := base.Get(key)
		if !exists {
			if err := addMissing(key, fullPath, value, base, changes, p); err != nil {
				return err
			}
			continue
		}

		tObj, tIsObj := value.(*jsondoc.Object)
		bObj, bIsObj := current.(*jsondoc.Object)
		_, tIsList := value.([]interface{})
		_, bIsList := current.([]interface{})

		switch {
		case tIsObj && bIsObj:
			if err := mergeTemplate(tObj, bObj, fullPath, changes, p); err != nil {
				return err
			}
		case tIsList && bIsList:
			// lists already in base are left as they are
		default:
			p.Warn("Key '%s' already exists in base-cred with value: %s", fullPath, jsondoc.Format(display(key, current)))
		}
	}
	return nil
}

func addMissing(key, fullPath string, value interface{}, base, changes *jsondoc.Object, p Prompter) error {
	switch v := value.(type) {
	case *jsondoc.Object:
		added := jsondoc.NewObject()
		base.Set(key, added)
		changes.Set(fullPath, jsondoc.NewObject())
		p.Info("Added new dictionary key: '%s' with value: {}", fullPath)
		return mergeTemplate(v, added, fullPath, changes, p)

	case []interface{}:
		list, err := askList(fullPath, p)
		if err != nil {
			return err
		}
		base.Set(key, list)
		changes.Set(fullPath, jsondoc.Clone(list))
		p.Info("Added new list key: '%s' with value: %s", fullPath, jsondoc.Format(list))
		return nil
	}

	added := value
	if IsPlaceholder(value) {
		answer, err := ask(p, key, p.Label("[PROMPT] Key '%s' has a placeholder value (%s). Enter a new value or press Enter to keep it: ",
			fullPath, jsondoc.Format(value)))
		if err != nil {
			return errors.Wrapf(err, "value for %s", fullPath)
		}
		if answer != "" {
			added = answer
		}
	}
	base.Set(key, jsondoc.Clone(added))
	changes.Set(fullPath, jsondoc.Clone(added))
	p.Info("Added new key: '%s' with value: %s", fullPath, jsondoc.Format(display(key, added)))
	return nil
}

func askList(fullPath string, p Prompter) ([]interface{}, error) {
	list := []interface{}{}

	add, err := p.Confirm(p.Label("[PROMPT] Key '%s' is an empty list. Add items now? (yes/no): ", fullPath))
	if err != nil {
		return nil, errors.Wrapf(err, "items for %s", fullPath)
	}
	if !add {
		return list, nil
	}

	answer, err := p.Ask(p.Label("How many items? "))
	if err != nil {
		return nil, errors.Wrapf(err, "item count for %s", fullPath)
	}
	count, err := strconv.Atoi(answer)
	if err != nil || count < 0 {
		return nil, errors.Errorf("invalid item count %q for %s", answer, fullPath)
	}

	for i := 1; i <= count; i++ {
		itemKey, err := p.Ask(p.Label("Item %d key: ", i))
		if err != nil {
			return nil, errors.Wrapf(err, "item %d key for %s", i, fullPath)
		}
		itemValue, err := ask(p, itemKey, p.Label("Item %d value: ", i))
		if err != nil {
			return nil, errors.Wrapf(err, "item %d value for %s", i, fullPath)
		}
		item := jsondoc.NewObject()
		item.Set(itemKey, itemValue)
		list = append(list, item)
	}
	return list, nil
}

// IsPlaceholder reports whether a template scalar is an unfilled default:
// the empty string, false or any spelling of zero.
func IsPlaceholder(v interface{}) bool {
	switch t := v.(type) {
	case string:
		return t == ""
	case bool:
		return !t
	case jsondoc.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case int:
		return t == 0
	case float64:
		return t == 0
	}
	return false
}

// SplitList turns "a, b,c" into ["a", "b", "c"]. Empty items are kept.
func SplitList(answer string) []interface{} {
	parts := strings.Split(answer, ",")
	out := make([]interface{}, len(parts))
	for i, part := range parts {
		out[i] = strings.TrimSpace(part)
	}
	return out
}

func valueOr(obj *jsondoc.Object, key string, fallback interface{}) interface{} {
	if v, ok := obj.Get(key); ok {
		return v
	}
	return fallback
}

func ask(p Prompter, key, label string) (string, error) {
	if profile.IsSecretKey(key) {
		return p.AskSecret(label)
	}
	return p.Ask(label)
}

func display(key string, v interface{}) interface{} {
	if s, ok := v.(string); ok && s != "" && profile.IsSecretKey(key) {
		return maskedValue
	}
	return v
}
