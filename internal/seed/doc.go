// Package seed populates a project with configuration files taken from
// profiles.
//
// A profile is a directory:
//
//	myprofile/
//	  profile.toml      optional metadata, variables, file and script lists
//	  templates/        files to install; *.tmpl files are rendered
//	  scripts/          shell scripts run after the files are written
//
// Profiles extend other profiles. The Loader resolves the inheritance chain
// parents first and merges it into one EffectiveProfile; ResolveVariables
// computes the variable set; the Seeder evaluates conditions, renders
// every template and only then writes files and runs scripts.
package seed
