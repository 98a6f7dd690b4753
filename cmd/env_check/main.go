package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"waha-crm/internal/config"
)

// Verifica que el entorno tenga todas las variables que la API necesita
// para arrancar. Sale con código distinto de cero si falta alguna.
func main() {
	_ = godotenv.Load()

	lines, missing := checkEnv(config.RequiredVars, os.Getenv)
	for _, line := range lines {
		fmt.Println(line)
	}

	if len(missing) > 0 {
		fmt.Printf("\n%d variable(s) faltante(s): revisa tu .env\n", len(missing))
		os.Exit(1)
	}
	fmt.Println("\nEntorno completo.")
}
