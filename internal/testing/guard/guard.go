package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("TASKHUB_TEST_MODE") == "" {
			_ = os.Setenv("TASKHUB_TEST_MODE", "1")
		}
	})
}
