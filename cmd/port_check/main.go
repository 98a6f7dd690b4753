package main

import (
	"fmt"
	"os"
)

// Puertos que el stack usa por defecto: 3000 para el frontend en
// desarrollo, 5000 para la API.
var defaultPorts = []int{3000, 5000}

func main() {
	busy := 0
	for _, port := range defaultPorts {
		st := checkPort(port)
		fmt.Println(describe(st))
		if !st.Free {
			busy++
		}
	}
	if busy > 0 {
		os.Exit(1)
	}
}
