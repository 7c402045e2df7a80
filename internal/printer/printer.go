// Package printer цветной вывод командной строки.
package printer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

func init() {
	// NO_COLOR отключает цвета
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
)

// Printer пишет сообщения в указанные потоки
type Printer struct {
	out io.Writer
	err io.Writer
}

// New создаёт вывод; nil означает stdout/stderr.
func New(out, errOut io.Writer) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &Printer{out: out, err: errOut}
}

// Success зелёное сообщение с галочкой
func (p *Printer) Success(format string, a ...any) {
	green.Fprintf(p.out, "✓ %s\n", fmt.Sprintf(format, a...))
}

// Info сообщение без цвета
func (p *Printer) Info(format string, a ...any) {
	fmt.Fprintf(p.out, format+"\n", a...)
}

// Warning жёлтое предупреждение
func (p *Printer) Warning(format string, a ...any) {
	yellow.Fprintf(p.err, "⚠️  %s\n", fmt.Sprintf(format, a...))
}

// Step шаг многошаговой операции
func (p *Printer) Step(format string, a ...any) {
	cyan.Fprintf(p.out, "→ %s\n", fmt.Sprintf(format, a...))
}

// Header жирный заголовок
func (p *Printer) Header(title string) {
	bold.Fprintln(p.out, title)
}

// Table выводит строки с выравниванием столбцов по ширине.
func (p *Printer) Table(header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len([]rune(h))
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len([]rune(cell)) > widths[i] {
				widths[i] = len([]rune(cell))
			}
		}
	}

	line := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			w := 0
			if i < len(widths) {
				w = widths[i]
			}
			parts[i] = c + strings.Repeat(" ", w-len([]rune(c)))
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	bold.Fprintln(p.out, line(header))
	for _, row := range rows {
		fmt.Fprintln(p.out, line(row))
	}
}

// Error печатает заголовок, пояснение и подсказки в stderr и возвращает
// короткую ошибку для cobra.
func (p *Printer) Error(title, explanation string, suggestions []string) error {
	red.Fprintf(p.err, "%s\n\n", title)
	if explanation != "" {
		fmt.Fprintf(p.err, "%s\n", explanation)
	}

	if len(suggestions) > 0 {
		fmt.Fprintln(p.err)
		if len(suggestions) == 1 {
			fmt.Fprintf(p.err, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(p.err, "Either:\n")
			for i, s := range suggestions {
				fmt.Fprintf(p.err, "  %d. %s\n", i+1, s)
			}
		}
	}

	return fmt.Errorf("%s", title)
}
