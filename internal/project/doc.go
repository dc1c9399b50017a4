// Package project manages the on-disk project directories that hold tours
// and their shared assets.
//
// Layout:
//
//	<projects_dir>/<project>/project.json        {"tours":[]}
//	<projects_dir>/<project>/assets/<name>       flat asset directory
//	<projects_dir>/<project>/<tour-id>.otb.json  one document per tour
//
// Project names, tour identifiers and asset names are restricted to small
// character sets so they can be used as path elements without escaping.
package project
