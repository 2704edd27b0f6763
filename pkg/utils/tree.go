package utils

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"
)

const (
	indentPrefix    = "    "
	entryPrefix     = "├── "
	lastEntryPrefix = "└── "
	verticalLine    = "│   "
)

// pathNode is one path segment in the URL tree
type pathNode struct {
	name     string
	children map[string]*pathNode
	page     bool // A discovered URL ends at this segment
}

func newPathNode(name string) *pathNode {
	return &pathNode{name: name, children: make(map[string]*pathNode)}
}

// WriteURLTree writes a text tree of the URL paths, grouped by segment, under rootLabel.
// URLs that fail to parse are skipped. Segments that are themselves pages are marked with "*".
func WriteURLTree(w io.Writer, rootLabel string, urls []string) error {
	root := newPathNode(rootLabel)
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		node := root
		for _, seg := range strings.Split(strings.Trim(u.Path, "/"), "/") {
			if seg == "" {
				continue
			}
			child, ok := node.children[seg]
			if !ok {
				child = newPathNode(seg)
				node.children[seg] = child
			}
			node = child
		}
		node.page = true
	}

	writer := bufio.NewWriter(w)
	label := root.name + "/"
	if root.page {
		label += " *"
	}
	if _, err := fmt.Fprintln(writer, label); err != nil {
		return err
	}
	if err := walkTree(writer, root, ""); err != nil {
		return err
	}
	return writer.Flush()
}

// walkTree writes the children of node depth-first. Branches come before leaves, then alphabetical.
func walkTree(writer io.Writer, node *pathNode, currentIndent string) error {
	entries := make([]*pathNode, 0, len(node.children))
	for _, child := range node.children {
		entries = append(entries, child)
	}
	slices.SortFunc(entries, func(a, b *pathNode) int {
		aIsDir := len(a.children) > 0
		bIsDir := len(b.children) > 0
		if aIsDir && !bIsDir {
			return -1
		}
		if !aIsDir && bIsDir {
			return 1
		}
		return strings.Compare(strings.ToLower(a.name), strings.ToLower(b.name))
	})

	for i, entry := range entries {
		isLast := i == len(entries)-1

		connector := entryPrefix
		if isLast {
			connector = lastEntryPrefix
		}

		name := entry.name
		if len(entry.children) > 0 {
			name += "/"
			if entry.page {
				name += " *"
			}
		}
		if _, err := fmt.Fprintf(writer, "%s%s%s\n", currentIndent, connector, name); err != nil {
			return err
		}

		if len(entry.children) > 0 {
			nextIndent := currentIndent
			if isLast {
				nextIndent += indentPrefix
			} else {
				nextIndent += verticalLine
			}
			if err := walkTree(writer, entry, nextIndent); err != nil {
				return err
			}
		}
	}
	return nil
}
