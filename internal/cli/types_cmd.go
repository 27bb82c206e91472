package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"pgshape/internal/analyze"
	"pgshape/internal/catalog"
)

func newTypesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "types [globs...]",
		Short: "Render inferred result types for views and routines",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cat, resolver, cleanup, err := setup(cmd.Context(), *configPath, args)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := analyze.Run(cmd.Context(), cat, resolver)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, result := range report.Results {
				fmt.Fprintf(out, "%s:\n", objectHeading(result.Object))
				for _, field := range result.Fields {
					fmt.Fprintf(out, "  %s: %s\n", field.Name, renderFieldType(field))
				}
			}
			return report.Err()
		},
	}
}

// objectHeading names an object for output. Set-returning routines are
// marked: their fields describe one row of the result set.
func objectHeading(obj *catalog.Object) string {
	if obj.Kind == catalog.KindRoutine && obj.ReturnsSet {
		return fmt.Sprintf("%s %s (setof)", obj.Kind, obj.ID)
	}
	return fmt.Sprintf("%s %s", obj.Kind, obj.ID)
}

// renderFieldType renders one output column's type, preferring the
// structural JSON shape when the inferencer produced one.
func renderFieldType(f analyze.Field) string {
	if f.JSON != nil {
		return analyze.RenderShape(f.JSON)
	}
	kind, ok := analyze.ClassifyOID(f.TypeOID)
	if !ok {
		kind = analyze.KindJSON
	}
	rendered := kind.String()
	for i := 0; i < f.Dims; i++ {
		rendered += "[]"
	}
	if f.Nullable {
		rendered += " | null"
	}
	return rendered
}
