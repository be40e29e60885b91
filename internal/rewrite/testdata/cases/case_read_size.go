package cases

import "os"

//debugtry:instrument
func readSize(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}
