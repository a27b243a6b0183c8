package config_test

import (
	"fmt"
	"log"

	"github.com/ajitpratap0/objectpool/pkg/config"
)

// ExampleDefault demonstrates the built-in configuration values.
func ExampleDefault() {
	cfg := config.Default()

	fmt.Printf("Pool: %s (limit %d)\n", cfg.Pool.Name, cfg.Pool.Limit)
	fmt.Printf("Bench Iterations: %d\n", cfg.Bench.Iterations)
	fmt.Printf("Request Timeout: %s\n", cfg.HTTP.RequestTimeout)

	// Output:
	// Pool: objectpool (limit 0)
	// Bench Iterations: 1000000
	// Request Timeout: 30s
}

// ExampleConfig_Validate shows how to validate a configuration
// before using it.
func ExampleConfig_Validate() {
	cfg := config.Default()
	cfg.Pool.Limit = 8
	cfg.Bench.Format = "json"

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	fmt.Println("Configuration is valid!")

	cfg.Pool.Limit = -1
	fmt.Println(cfg.Validate())

	// Output:
	// Configuration is valid!
	// config: pool.limit cannot be negative
}

// ExamplePoolConfig_Options shows how pool settings become pool options.
func ExamplePoolConfig_Options() {
	opts := config.PoolConfig{Name: "parsers", Limit: 4}.Options()
	fmt.Println(len(opts))

	// Output:
	// 2
}
