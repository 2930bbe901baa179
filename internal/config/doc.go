// Package config defines the format-agnostic configuration model of the
// service, along with the Loader interface implemented by each
// configuration format.
//
// The `config.Model` is the single source of truth for the `app` package.
// Concrete loaders, such as HCL and YAML provisioning, live in separate
// packages.
package config
