// Package template renders <% %> placeholders in block text.
//
// The Renderer interface is the only thing the parser and runner depend on.
// The default engine is text/template with "<%" and "%>" delimiters; "<%="
// is accepted as an alias for "<%" so both of these work:
//
//	GET <%= .host %>/users/<% .user.id %>
//	<% if .debug %>X-Debug: 1<% end %>
//
// Scope keys are accessed with a leading dot. Completed named blocks are
// exposed under their id.
package template
