package cases

import (
	"fmt"
	"os"
)

//debugtry:instrument nested=true
func printFileSize(path string) error {
	fileSize := func(p string) (int, error) {
		data, err := os.ReadFile(p)
		if err != nil {
			return 0, err
		}
		return len(data), nil
	}

	size, err := fileSize(path)
	if err != nil {
		return err
	}

	fmt.Println("file size =", size)
	return nil
}
