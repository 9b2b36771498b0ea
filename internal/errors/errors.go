package errors

import (
	"fmt"
	"os"
	"sync"
)

var (
	defaultHandler *ErrorHandler
	defaultErr     error
	once           sync.Once
)

func GetDefaultHandler() (*ErrorHandler, error) {
	once.Do(func() {
		defaultHandler, defaultErr = NewErrorHandler()
	})
	return defaultHandler, defaultErr
}

// HandleError reports err on the console and in the log file.
// When the log file cannot be opened the error is still printed.
func HandleError(err error) {
	if err == nil {
		return
	}
	handler, handlerErr := GetDefaultHandler()
	if handlerErr != nil || handler == nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return
	}
	handler.Handle(err)
}

// resetDefaultHandler resets the singleton for testing purposes
func resetDefaultHandler() {
	defaultHandler = nil
	defaultErr = nil
	once = sync.Once{}
}
