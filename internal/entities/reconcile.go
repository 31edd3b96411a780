package entities

import (
	"strings"
)

type mergeFunc func(a, b EntityMap, mandatory []string) EntityMap

// Reconcile merges two extraction results. For every schema category present
// in either input it trims values, drops blanks and takes the duplicate-free
// union, A's values first. Empty categories are dropped unless mandatory.
// Every schema category listed in mandatory is present in the result and no
// key outside the schema ever is.
//
// Reconcile never fails: if merging panics, A (or B when A is empty) is taken
// as the whole result.
func Reconcile(a, b EntityMap, mandatory []string) EntityMap {
	return reconcileWith(merge, a, b, mandatory)
}

func reconcileWith(fn mergeFunc, a, b EntityMap, mandatory []string) (out EntityMap) {
	defer func() {
		if r := recover(); r != nil {
			out = fallback(a, b, mandatory)
		}
	}()
	return fn(a, b, mandatory)
}

func merge(a, b EntityMap, mandatory []string) EntityMap {
	isMandatory := make(map[string]bool, len(mandatory))
	for _, k := range mandatory {
		isMandatory[k] = true
	}

	out := make(EntityMap)
	for _, category := range Categories {
		_, inA := a[category]
		_, inB := b[category]
		if !inA && !inB && !isMandatory[category] {
			continue
		}
		values := union(a[category], b[category])
		if len(values) > 0 || isMandatory[category] {
			out[category] = values
		}
	}
	return out
}

func fallback(a, b EntityMap, mandatory []string) EntityMap {
	base := a
	if len(base) == 0 {
		base = b
	}
	out := make(EntityMap)
	for k, v := range base {
		if IsCategory(k) {
			out[k] = append([]string(nil), v...)
		}
	}
	EnsureMandatory(out, mandatory)
	return out
}

// EnsureMandatory adds an empty list for each schema category in mandatory
// that m lacks.
func EnsureMandatory(m EntityMap, mandatory []string) {
	for _, k := range mandatory {
		if !IsCategory(k) {
			continue
		}
		if _, ok := m[k]; !ok {
			m[k] = []string{}
		}
	}
}

// union returns the trimmed, non-blank values of all lists without
// duplicates, in first-seen order.
func union(lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, list := range lists {
		for _, v := range list {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
