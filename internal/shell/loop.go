package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/zarlcorp/zident/internal/display"
)

const clearScreen = "\033[H\033[2J"

// RunLines drives the shell from a plain line reader, for input that is not a
// terminal. It returns on stop, end of input or ctx cancellation; command
// errors are printed and the loop continues.
func RunLines(ctx context.Context, sh *Shell, in io.Reader, out io.Writer, color bool, version string) error {
	p := display.New(out, color)
	p.Banner(version)
	p.Help()

	sc := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(out, "\nzident> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}

		err := sh.Exec(ctx, sc.Text(), p)
		switch {
		case err == nil:
		case errors.Is(err, ErrStop):
			return nil
		case errors.Is(err, ErrClear):
			if color {
				fmt.Fprint(out, clearScreen)
			}
			p.Banner(version)
			p.Help()
		default:
			p.Err("Error: " + err.Error())
		}
	}
}
