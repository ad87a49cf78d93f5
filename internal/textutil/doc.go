// Package textutil sanitizes catalog-supplied strings for use as file and
// directory names.
package textutil
