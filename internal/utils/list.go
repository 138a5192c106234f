package utils

import (
	"strings"
)

// SplitList splits a separated parameter list, trimming entries and dropping empty ones
func SplitList(s string, sep string) []string {
	list := make([]string, 0)

	for _, item := range strings.Split(s, sep) {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}

	return list
}

// FlattenList splits every entry of items on sep, so both repeated flags and
// comma-separated values are accepted
func FlattenList(items []string, sep string) []string {
	list := make([]string, 0, len(items))

	for _, item := range items {
		list = append(list, SplitList(item, sep)...)
	}

	return list
}

// AppendUnique appends the items that are not already present in list, keeping order
func AppendUnique(list []string, items ...string) []string {
	for _, item := range items {
		if !Contains(list, item) {
			list = append(list, item)
		}
	}

	return list
}

// Contains reports whether item is in list
func Contains(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}

	return false
}
