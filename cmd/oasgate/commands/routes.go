package commands

import (
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/erraggy/oasgate/middleware"
)

// RouteView is the structured output of the routes command.
type RouteView struct {
	Method      string `json:"method" yaml:"method"`
	Path        string `json:"path" yaml:"path"`
	OperationID string `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Parameters  int    `json:"parameters" yaml:"parameters"`
}

// RoutesView lists the operations of one declaration in match order.
type RoutesView struct {
	Title    string      `json:"title" yaml:"title"`
	Version  string      `json:"version" yaml:"version"`
	BasePath string      `json:"basePath" yaml:"basePath"`
	Routes   []RouteView `json:"routes" yaml:"routes"`
}

func newRoutesCommand() *cobra.Command {
	var spec, format, basePath string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the operations the middleware validates",
		Long: `Routes lists every declared operation in the order requests are matched,
with its full path, operationId and number of validated parameters.`,
		Example: `  oasgate routes --spec api.yaml
  oasgate routes --spec api.yaml --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := ValidateOutputFormat(format); err != nil {
				return err
			}
			view, err := buildRoutesView(spec, basePath)
			if err != nil {
				return err
			}
			if format == FormatText {
				return writeRoutesText(cmd.OutOrStdout(), view)
			}
			return OutputStructured(cmd.OutOrStdout(), view, format)
		},
	}

	f := cmd.Flags()
	f.StringVar(&spec, "spec", "", "path to the OpenAPI declaration (YAML or JSON)")
	f.StringVarP(&format, "format", "f", FormatText, "output format: text, json, or yaml")
	f.StringVar(&basePath, "base-path", "", "mount the API here instead of its declared base path")
	return cmd
}

func buildRoutesView(spec, basePath string) (*RoutesView, error) {
	decl, err := loadDeclaration(spec)
	if err != nil {
		return nil, err
	}
	mw, err := middleware.New(http.NotFoundHandler())
	if err != nil {
		return nil, err
	}
	var opts []middleware.APIOption
	if basePath != "" {
		opts = append(opts, middleware.WithBasePath(basePath))
	}
	api, err := mw.AddAPI(decl, opts...)
	if err != nil {
		return nil, err
	}

	view := &RoutesView{
		Title:    decl.Title,
		Version:  decl.Version,
		BasePath: api.BasePath(),
		Routes:   []RouteView{},
	}
	for _, r := range api.Routes() {
		view.Routes = append(view.Routes, RouteView{
			Method:      r.Method,
			Path:        r.Path,
			OperationID: r.OperationID,
			Parameters:  r.Parameters,
		})
	}
	return view, nil
}

func writeRoutesText(w io.Writer, view *RoutesView) error {
	basePath := view.BasePath
	if basePath == "" {
		basePath = "/"
	}
	if _, err := fmt.Fprintf(w, "%s (OpenAPI %s), base path %s, %d operations\n\n",
		view.Title, view.Version, basePath, len(view.Routes)); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "METHOD\tPATH\tOPERATION\tPARAMETERS")
	for _, r := range view.Routes {
		id := r.OperationID
		if id == "" {
			id = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", r.Method, r.Path, id, r.Parameters)
	}
	return tw.Flush()
}
