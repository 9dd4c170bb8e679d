// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	DescriptorParseErrorId Id = iota + 1
	DescriptorNotFoundId
	ArchiveCorruptId
	SessionLockTimeoutId
	ConfigLoadFailedId
	RestoreIncompleteId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to look up the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // documentation links for the issue type
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	descriptorParseErrorIssue = &Issue{
		id: DescriptorParseErrorId,
		mdMsg: `
# Failed to parse a module descriptor!

A go.mod file contains a directive block that is never closed.

## Things you can try:
- Open the file at the reported line and add the missing ` + "`)`" + `
- If the file was mangled by an interrupted link run, reinstate the original:
~~~
$ modlink restore
~~~`,
	}

	descriptorNotFoundIssue = &Issue{
		id: DescriptorNotFoundId,
		mdMsg: `
# No module descriptor found!

The project source directory contains no go.mod file, so there is nothing
to cross-link.

## Things you can try:
- Check that the configured source directory points at your module sources
- Override it on the command line:
~~~
$ modlink link --source-dir ./src
~~~`,
	}

	archiveCorruptIssue = &Issue{
		id: ArchiveCorruptId,
		mdMsg: `
# Failed to unpack a dependency artifact!

A dependency archive could not be read as a zip file.

## Common causes:
- A truncated download in the local artifact cache
- An artifact that is not actually a zip archive

## Things you can try:
- Delete the cached artifact and let the build re-fetch it
- Force a clean re-extraction of all dependency folders:
~~~
$ modlink link --force-clean
~~~`,
	}

	sessionLockTimeoutIssue = &Issue{
		id: SessionLockTimeoutId,
		mdMsg: `
# Timed out waiting for the session lock!

Another build process of the same session held the link-phase lock for
longer than expected.

## Things you can try:
- Check for a hung sibling build process and stop it
- If the holder crashed, the lock is taken over automatically after the
  staleness cutoff; simply retry
- Remove the lock file manually as a last resort (its path is in the error
  message above)`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Your modlink configuration file contains errors.

## Things you can try:
- Check the error message above for the specific field
- Show the effective configuration:
~~~
$ modlink config show
~~~
- Validate the file with the cue command-line tool`,
	}

	restoreIncompleteIssue = &Issue{
		id: RestoreIncompleteId,
		mdMsg: `
# Descriptor restore did not complete!

One or more module descriptors could not be restored from their backups.

## Things you can try:
- Re-run the restore; it is idempotent and picks up where it stopped:
~~~
$ modlink restore
~~~
- Check filesystem permissions on the reported directories`,
	}

	issues = map[Id]*Issue{
		descriptorParseErrorIssue.Id(): descriptorParseErrorIssue,
		descriptorNotFoundIssue.Id():   descriptorNotFoundIssue,
		archiveCorruptIssue.Id():       archiveCorruptIssue,
		sessionLockTimeoutIssue.Id():   sessionLockTimeoutIssue,
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		restoreIncompleteIssue.Id():    restoreIncompleteIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
