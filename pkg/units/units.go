// Package units composes unit strings for reduced quantities and converts
// spectral coordinate values between frequency, wavelength, energy and radio
// velocity.
//
// Unit strings follow the "K km / s" convention: space separated factors with
// an optional integer power suffix ("deg2", "s-1") and at most one "/".
package units

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// ErrConversion reports a unit that cannot be parsed or a conversion that
// cannot be performed with the information given.
var ErrConversion = errors.New("units: conversion failed")

type factor struct {
	name string
	pow  int
}

// parse splits a unit string into its factors, in order of first appearance.
func parse(u string) []factor {
	u = strings.TrimSpace(u)
	if u == "" || u == "1" {
		return nil
	}
	num, den, _ := strings.Cut(u, "/")
	var out []factor
	add := func(part string, sign int) {
		for _, tok := range strings.Fields(part) {
			if tok == "1" {
				continue
			}
			name, pow := splitPower(tok)
			out = append(out, factor{name: name, pow: sign * pow})
		}
	}
	add(num, 1)
	add(den, -1)
	return merge(out)
}

// splitPower separates "km2" into ("km", 2) and "s^-1" into ("s", -1).
func splitPower(tok string) (string, int) {
	tok = strings.TrimSpace(tok)
	if name, p, ok := strings.Cut(tok, "^"); ok {
		if n, err := strconv.Atoi(p); err == nil {
			return name, n
		}
		return tok, 1
	}
	i := len(tok)
	for i > 0 && unicode.IsDigit(rune(tok[i-1])) {
		i--
	}
	if i > 0 && tok[i-1] == '-' && i < len(tok) {
		i--
	}
	if i == 0 || i == len(tok) {
		return tok, 1
	}
	n, err := strconv.Atoi(tok[i:])
	if err != nil {
		return tok, 1
	}
	return tok[:i], n
}

func merge(fs []factor) []factor {
	var out []factor
	idx := map[string]int{}
	for _, f := range fs {
		if j, ok := idx[f.name]; ok {
			out[j].pow += f.pow
			continue
		}
		idx[f.name] = len(out)
		out = append(out, f)
	}
	kept := out[:0]
	for _, f := range out {
		if f.pow != 0 {
			kept = append(kept, f)
		}
	}
	return kept
}

func format(fs []factor) string {
	var num, den []string
	for _, f := range fs {
		p := f.pow
		if p < 0 {
			p = -p
		}
		s := f.name
		if p != 1 {
			s += strconv.Itoa(p)
		}
		if f.pow > 0 {
			num = append(num, s)
		} else {
			den = append(den, s)
		}
	}
	switch {
	case len(num) == 0 && len(den) == 0:
		return ""
	case len(den) == 0:
		return strings.Join(num, " ")
	case len(num) == 0:
		num = []string{"1"}
	}
	return strings.Join(num, " ") + " / " + strings.Join(den, " ")
}

// Mul returns the unit of a product of quantities in a and b.
func Mul(a, b string) string {
	return format(merge(append(parse(a), parse(b)...)))
}

// Pow returns u raised to the integer power n.
func Pow(u string, n int) string {
	fs := parse(u)
	for i := range fs {
		fs[i].pow *= n
	}
	return format(merge(fs))
}

// Canonical rewrites u with factors merged, so that equivalent spellings of
// the same unit compare equal.
func Canonical(u string) string {
	return format(parse(u))
}

// Equivalent reports whether a and b spell the same composite unit,
// ignoring factor order.
func Equivalent(a, b string) bool {
	fa, fb := parse(a), parse(b)
	if len(fa) != len(fb) {
		return false
	}
	key := func(fs []factor) []string {
		out := make([]string, len(fs))
		for i, f := range fs {
			out[i] = fmt.Sprintf("%s^%d", f.name, f.pow)
		}
		sort.Strings(out)
		return out
	}
	ka, kb := key(fa), key(fb)
	for i := range ka {
		if ka[i] != kb[i] {
			return false
		}
	}
	return true
}
