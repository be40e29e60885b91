package cases

import "strconv"

//debugtry:instrument
func parseAll(items []string) ([]int, error) {
	out := make([]int, 0, len(items))
	for _, item := range items {
		n, err := strconv.Atoi(item)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
