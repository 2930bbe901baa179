// Package hcl provides the HCL implementation of config.Loader. It parses
// configuration files, translates their blocks into the format-agnostic
// model and converts static frame values from cty.
package hcl
