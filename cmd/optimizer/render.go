package main

import (
	"fmt"
	"io"
	"strings"

	"optimizer.app/relay/internal/model"
	"optimizer.app/relay/internal/pipeline"
)

func render(w io.Writer, p pipeline.Presentation) {
	for i, col := range p.Columns {
		if i > 0 {
			fmt.Fprintln(w)
		}
		title := fmt.Sprintf("== %s [%s] ", col.DisplayName, col.Status)
		fmt.Fprintln(w, title+strings.Repeat("=", max(0, 60-len(title))))

		r := col.Result
		if r.Code != nil {
			fmt.Fprintf(w, "\n%s\n", *r.Code)
		}
		if r.Explanation != nil {
			fmt.Fprintf(w, "\n-- explanation\n%s\n", *r.Explanation)
		}
		if r.Error != nil {
			fmt.Fprintf(w, "\nerror (%s): %s\n", r.Error.Kind, r.Error.Message)
		}
		if r.TimeComplexity != nil || r.SpaceComplexity != nil {
			fmt.Fprintf(w, "\ncomplexity: time %s, space %s\n",
				complexityLabel(r.TimeComplexity), complexityLabel(r.SpaceComplexity))
		}
		if r.ComplexityError != nil {
			fmt.Fprintf(w, "complexity error: %s\n", r.ComplexityError.Message)
		}
	}

	if len(p.Chart) == 0 {
		return
	}
	fmt.Fprintln(w, "\n== complexity (rank 1 = O(1) ... 8 = O(n!))")
	for _, pt := range p.Chart {
		fmt.Fprintf(w, "%-24s time  %-8s %s\n", pt.DisplayName, strings.Repeat("#", int(pt.TimeRank)), pt.TimeLabel)
		fmt.Fprintf(w, "%-24s space %-8s %s\n", "", strings.Repeat("#", int(pt.SpaceRank)), pt.SpaceLabel)
	}
}

func complexityLabel(c *model.Complexity) string {
	if c == nil {
		return "-"
	}
	if !c.Rank.Known() {
		return fmt.Sprintf("%s (%q)", model.UnknownLabel, c.Raw)
	}
	return c.Label
}
