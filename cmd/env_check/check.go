package main

import (
	"fmt"
	"strings"
)

// checkEnv evalúa cada variable requerida con la función de lookup dada y
// devuelve una línea por variable más la lista de ausentes.
func checkEnv(required []string, getenv func(string) string) (lines []string, missing []string) {
	for _, name := range required {
		if strings.TrimSpace(getenv(name)) == "" {
			lines = append(lines, fmt.Sprintf("[FALTA] %s no está definida", name))
			missing = append(missing, name)
			continue
		}
		lines = append(lines, fmt.Sprintf("[OK]    %s", name))
	}
	return lines, missing
}
