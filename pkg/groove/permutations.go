package groove

import "sort"

// Permutations returns every distinct ordering of the groove's note lengths,
// in descending lexicographic order. Each ordering plays at the same tempo.
func Permutations(g Groove) ([]Groove, error) {
	if err := Validate(g); err != nil {
		return nil, err
	}
	return permutations(g), nil
}

// permutations generates the orderings of an already validated groove
func permutations(g Groove) []Groove {
	current := g.Clone()
	sort.Sort(sort.Reverse(sort.IntSlice(current)))

	var perms []Groove
	for {
		perms = append(perms, current.Clone())
		if !prevPermutation(current) {
			break
		}
	}
	return perms
}

// prevPermutation rearranges s into the previous lexicographic permutation,
// skipping duplicates. It returns false once s is in ascending order.
func prevPermutation(s []int) bool {
	i := len(s) - 2
	for i >= 0 && s[i] <= s[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	j := len(s) - 1
	for s[j] >= s[i] {
		j--
	}
	s[i], s[j] = s[j], s[i]
	for l, r := i+1, len(s)-1; l < r; l, r = l+1, r-1 {
		s[l], s[r] = s[r], s[l]
	}
	return true
}
