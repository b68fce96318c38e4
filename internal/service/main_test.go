package service

import (
	"os"
	"testing"

	"github.com/toolsforexperiments/lab-dragon-sub000/internal/tester"
)

func TestMain(m *testing.M) {
	tester.Setup()
	code := m.Run()

	os.Exit(code)
}
