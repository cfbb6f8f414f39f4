// Copyright 2025 The Minima Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package minima

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
	figure "github.com/common-nighthawk/go-figure"
)

// printBanner prints the startup banner to stdout once Listen binds the
// transport, matching app/banner.go's printStartupBanner.
func (a *App) printBanner(r ListenResult) {
	w := colorprofile.NewWriter(os.Stdout, os.Environ())

	art := figure.NewFigure(a.config.serviceName, "", false)
	gradient := []string{"12", "14", "10", "11"}

	var styled strings.Builder
	for _, line := range art.Slicify() {
		if strings.TrimSpace(line) == "" {
			styled.WriteString("\n")
			continue
		}
		for i, ch := range line {
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(gradient[i%len(gradient)])).Bold(true)
			styled.WriteString(style.Render(string(ch)))
		}
		styled.WriteString("\n")
	}

	infoStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	fmt.Fprintln(w, styled.String())
	fmt.Fprintln(w, infoStyle.Render(fmt.Sprintf("listening on %s", r.Address)))
}
