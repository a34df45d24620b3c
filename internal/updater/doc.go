// Package updater looks up the newest adt release on GitHub and compares it
// with the running version. It never downloads or replaces anything.
package updater
