// Package dag is a small directed dependency graph used to order the data
// sources of a render plan. Nodes are named by string IDs; an edge from a to b
// means b depends on a.
package dag
