package output

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"text/tabwriter"

	"github.com/fatih/color"
	json "github.com/json-iterator/go"
	"github.com/zfogg/threadline/pkg/config"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatTable OutputFormat = "table"
	FormatText  OutputFormat = "text"
)

var (
	// Styles shared by the renderers
	Bold    = color.New(color.Bold)
	Faint   = color.New(color.Faint)
	Success = color.New(color.FgGreen)
	Failure = color.New(color.FgRed)
	Info    = color.New(color.FgCyan)
	Warning = color.New(color.FgYellow)
	Accent  = color.New(color.FgMagenta)
)

var (
	mu  sync.Mutex
	out io.Writer = color.Output
)

// SetWriter redirects all output, for tests and the interactive shell
func SetWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// Writer returns the current output destination
func Writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return out
}

// GetOutputFormat returns the configured output format
func GetOutputFormat() OutputFormat {
	format := config.GetString("output.format")
	switch format {
	case "json":
		return FormatJSON
	case "table":
		return FormatTable
	default:
		return FormatText
	}
}

// ValidateOutputFormat checks if format is valid
func ValidateOutputFormat(format string) bool {
	return format == "json" || format == "table" || format == "text"
}

// Print outputs data in the configured format with optional title
func Print(title string, data interface{}) error {
	if GetOutputFormat() == FormatJSON {
		return printJSON(data)
	}
	return printText(title, data)
}

// PrintList outputs rows as a table, or the raw items as JSON
func PrintList(title string, items interface{}, columns []string, rows [][]string) error {
	if GetOutputFormat() == FormatJSON {
		return printJSON(items)
	}

	w := Writer()
	if title != "" {
		Bold.Fprintf(w, "%s\n", title)
	}
	printTable(w, columns, rows)
	return nil
}

// PrintRecord outputs a single record in the configured format
func PrintRecord(title string, record map[string]interface{}) error {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	switch GetOutputFormat() {
	case FormatJSON:
		return printJSON(record)
	case FormatTable:
		rows := make([][]string, 0, len(record))
		for _, k := range keys {
			rows = append(rows, []string{k, fmt.Sprintf("%v", record[k])})
		}
		printTable(Writer(), []string{"Field", "Value"}, rows)
		return nil
	default:
		w := Writer()
		if title != "" {
			fmt.Fprintf(w, "%s:\n", title)
		}
		for _, k := range keys {
			Bold.Fprint(w, k+": ")
			fmt.Fprintf(w, "%v\n", record[k])
		}
		return nil
	}
}

// PrintSuccess prints a success message
func PrintSuccess(msg string, args ...interface{}) {
	Success.Fprintf(Writer(), msg+"\n", args...)
}

// PrintError prints an error message
func PrintError(msg string, args ...interface{}) {
	Failure.Fprintf(Writer(), "Error: "+msg+"\n", args...)
}

// PrintInfo prints an info message
func PrintInfo(msg string, args ...interface{}) {
	Info.Fprintf(Writer(), msg+"\n", args...)
}

// PrintWarning prints a warning message
func PrintWarning(msg string, args ...interface{}) {
	Warning.Fprintf(Writer(), "Warning: "+msg+"\n", args...)
}

func printJSON(data interface{}) error {
	s, err := FormatAsPrettyJSON(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(Writer(), s)
	return err
}

func printText(title string, data interface{}) error {
	w := Writer()
	if s, ok := data.(string); ok {
		if title != "" {
			Bold.Fprintf(w, "%s\n", title)
		}
		_, err := fmt.Fprintln(w, s)
		return err
	}

	if title != "" {
		fmt.Fprintf(w, "%s:\n", title)
	}
	s, err := FormatAsPrettyJSON(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, s)
	return err
}

func printTable(w io.Writer, headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	for i, h := range headers {
		Bold.Fprint(tw, h)
		if i < len(headers)-1 {
			fmt.Fprint(tw, "\t")
		}
	}
	fmt.Fprintln(tw)

	for _, row := range rows {
		for i, cell := range row {
			fmt.Fprint(tw, cell)
			if i < len(row)-1 {
				fmt.Fprint(tw, "\t")
			}
		}
		fmt.Fprintln(tw)
	}

	tw.Flush()
}

// FormatAsPrettyJSON converts data to an indented JSON string
func FormatAsPrettyJSON(data interface{}) (string, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
