// Package grouping clusters similar document pairs into plagiarism groups.
package grouping

import "sort"

// SortCanonical orders pairs by (I, J), swapping endpoints so that I < J.
func SortCanonical(pairs []Pair) {
	for k := range pairs {
		if pairs[k].I > pairs[k].J {
			pairs[k].I, pairs[k].J = pairs[k].J, pairs[k].I
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool {
		if pairs[a].I != pairs[b].I {
			return pairs[a].I < pairs[b].I
		}
		return pairs[a].J < pairs[b].J
	})
}

// Qualifying returns the pairs whose similarity reaches the threshold, in input order.
func Qualifying(pairs []Pair, threshold float64) []Pair {
	qualifying := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		if p.Similarity >= threshold {
			qualifying = append(qualifying, p)
		}
	}
	return qualifying
}

// Find groups the pairs reaching opts.Threshold. pairs must be in canonical order (see SortCanonical).
// Each group takes its similarity and shared words from the first qualifying pair that started it.
func Find(pairs []Pair, opts Options) []Group {
	opts = opts.withDefaults()
	qualifying := Qualifying(pairs, opts.Threshold)
	if len(qualifying) == 0 {
		return nil
	}
	if opts.Mode == MergeUnionFind {
		return unionFind(qualifying)
	}
	return singlePass(qualifying)
}

func singlePass(qualifying []Pair) []Group {
	var groups []Group
	used := make(map[int]bool)

	for _, start := range qualifying {
		if used[start.I] || used[start.J] {
			continue
		}
		members := map[int]bool{start.I: true, start.J: true}
		used[start.I], used[start.J] = true, true

		// one scan only: pairs connected through a member added later in the scan are not revisited
		for _, p := range qualifying {
			if members[p.I] || members[p.J] {
				members[p.I], members[p.J] = true, true
				used[p.I], used[p.J] = true, true
			}
		}
		groups = append(groups, newGroup(members, start))
	}
	return groups
}

func unionFind(qualifying []Pair) []Group {
	parent := make(map[int]int)
	var find func(int) int
	find = func(x int) int {
		p, ok := parent[x]
		if !ok {
			parent[x] = x
			return x
		}
		if p != x {
			parent[x] = find(p)
		}
		return parent[x]
	}

	for _, p := range qualifying {
		ri, rj := find(p.I), find(p.J)
		if ri == rj {
			continue
		}
		if ri < rj {
			parent[rj] = ri
		} else {
			parent[ri] = rj
		}
	}

	// components in order of their first qualifying pair
	var (
		groups []Group
		index  = make(map[int]int) // root -> position in groups
		comps  []map[int]bool
		starts []Pair
	)
	for _, p := range qualifying {
		root := find(p.I)
		pos, ok := index[root]
		if !ok {
			pos = len(comps)
			index[root] = pos
			comps = append(comps, make(map[int]bool))
			starts = append(starts, p)
		}
		comps[pos][p.I], comps[pos][p.J] = true, true
	}
	for k, members := range comps {
		groups = append(groups, newGroup(members, starts[k]))
	}
	return groups
}

func newGroup(members map[int]bool, start Pair) Group {
	g := Group{
		Members:     make([]int, 0, len(members)),
		Similarity:  start.Similarity,
		SharedWords: make([]string, 0, len(start.SharedWords)),
	}
	g.SharedWords = append(g.SharedWords, start.SharedWords...)
	for m := range members {
		g.Members = append(g.Members, m)
	}
	sort.Ints(g.Members)
	sort.Strings(g.SharedWords)
	return g
}
