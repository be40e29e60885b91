package cases

import "os"

//debugtry:instrument
func statSize(path string) (size int64, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	size = info.Size()
	return
}
