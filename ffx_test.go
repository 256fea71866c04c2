package ffx

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsUnsupported(Te *testing.T) {
	fmt.Println("Unsupported-capability error test!")
	var err error = UnsupportedError("no second derivatives")
	if !IsUnsupported(err) {
		Te.Fatalf("an UnsupportedError was not recognized")
	}
	if IsUnsupported(errors.New("a real failure")) {
		Te.Fatalf("a plain error was taken as an UnsupportedError")
	}
	if err.Error() != "no second derivatives" {
		Te.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestPanicMsg(Te *testing.T) {
	var p error = PanicMsg("a programming error")
	if p.Error() != "a programming error" {
		Te.Fatalf("unexpected panic message: %s", p.Error())
	}
}
