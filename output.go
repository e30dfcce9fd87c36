package main

import (
	"fmt"
	"sort"
	"strings"
)

// Node represents an entry in the merged-files tree.
type Node struct {
	Name     string
	IsDir    bool
	Failed   bool // entry was visited but could not be read
	Children []*Node
}

// buildTree builds a tree from the relative paths of a merge's entries.
// Intermediate directories are created as needed.
func buildTree(rootName string, entries []EntryResult) *Node {
	root := &Node{Name: rootName, IsDir: true}
	dirs := map[string]*Node{"": root}

	for _, er := range entries {
		parts := strings.Split(er.Entry.RelPath, "/")
		parent := root
		for i := range parts[:len(parts)-1] {
			key := strings.Join(parts[:i+1], "/")
			dir, ok := dirs[key]
			if !ok {
				dir = &Node{Name: parts[i], IsDir: true}
				parent.Children = append(parent.Children, dir)
				dirs[key] = dir
			}
			parent = dir
		}
		parent.Children = append(parent.Children, &Node{
			Name:   parts[len(parts)-1],
			Failed: er.Err != nil,
		})
	}

	sortChildren(root)
	return root
}

// sortChildren recursively sorts the children of a node alphabetically.
func sortChildren(node *Node) {
	if !node.IsDir || len(node.Children) == 0 {
		return
	}
	sort.Slice(node.Children, func(i, j int) bool {
		return node.Children[i].Name < node.Children[j].Name
	})
	for _, child := range node.Children {
		sortChildren(child)
	}
}

// printTree generates the string representation of the tree.
func printTree(root *Node) string {
	var builder strings.Builder
	builder.WriteString(root.Name)
	builder.WriteString("\n")
	printNode(&builder, root.Children, "")
	return builder.String()
}

func printNode(builder *strings.Builder, children []*Node, prefix string) {
	for i, node := range children {
		connector := "├── "
		newPrefix := prefix + "│   "
		if i == len(children)-1 {
			connector = "└── "
			newPrefix = prefix + "    "
		}

		builder.WriteString(prefix)
		builder.WriteString(connector)
		builder.WriteString(node.Name)
		if node.Failed {
			builder.WriteString(" (unreadable)")
		}
		builder.WriteString("\n")

		if node.IsDir && len(node.Children) > 0 {
			printNode(builder, node.Children, newPrefix)
		}
	}
}

// summaryText renders the end-of-run report for a merge.
func summaryText(result MergeResult) string {
	var b strings.Builder
	b.WriteString(result.String())
	b.WriteString("\n")
	fmt.Fprintf(&b, "Files visited: %d\n", result.FilesVisited)
	fmt.Fprintf(&b, "Total size: %d bytes\n", result.TotalBytes)
	if result.TotalTokens > 0 {
		fmt.Fprintf(&b, "Total tokens: %d\n", result.TotalTokens)
	}
	if failed := result.Failed(); len(failed) > 0 {
		fmt.Fprintf(&b, "Files failed to read: %d\n", len(failed))
		for _, er := range failed {
			fmt.Fprintf(&b, "- %s: %v\n", er.Entry.RelPath, er.Err)
		}
	}
	return b.String()
}
