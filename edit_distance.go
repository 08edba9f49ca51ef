// Copyright 2011 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package wilco

// editDistance computes the Levenshtein distance between s1 and s2, used
// to suggest a near-miss target/description when a CLI lookup fails to
// find an exact match. The classic dynamic-programming algorithm is
// described at http://en.wikipedia.org/wiki/LevenshteinDistance; only one
// row plus one scalar ("previous") is kept at a time rather than the full
// m x n table.
func editDistance(s1, s2 string, allowReplacements bool, maxEditDistance int) int {
	m := len(s1)
	n := len(s2)

	row := make([]int, n+1)
	for i := 1; i <= n; i++ {
		row[i] = i
	}

	for y := 1; y <= m; y++ {
		row[0] = y
		bestThisRow := row[0]

		previous := y - 1
		for x := 1; x <= n; x++ {
			oldRow := row[x]
			if allowReplacements {
				v := 0
				if s1[y-1] != s2[x-1] {
					v = 1
				}
				row[x] = min(previous+v, min(row[x-1], row[x])+1)
			} else {
				if s1[y-1] == s2[x-1] {
					row[x] = previous
				} else {
					row[x] = min(row[x-1], row[x]) + 1
				}
			}
			previous = oldRow
			bestThisRow = min(bestThisRow, row[x])
		}

		if maxEditDistance != 0 && bestThisRow > maxEditDistance {
			return maxEditDistance + 1
		}
	}

	return row[n]
}

// suggestTarget returns the candidate (a description or a full output
// path) closest to target, or "" if nothing is close enough to be a
// plausible typo.
func suggestTarget(target string, candidates []string) string {
	const maxDistance = 3
	best := ""
	bestDistance := maxDistance + 1
	for _, candidate := range candidates {
		d := editDistance(target, candidate, true, bestDistance)
		if d < bestDistance {
			bestDistance = d
			best = candidate
		}
	}
	return best
}

// SuggestTarget exposes suggestTarget to callers outside the package, such
// as the query subcommand's own "target not found" error.
func SuggestTarget(target string, candidates []string) string {
	return suggestTarget(target, candidates)
}
