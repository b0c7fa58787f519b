// Package theme loads the panel's GTK CSS. Themes are looked up in
// ~/.config/wlpanel/themes/ first and then among the bundled themes, and
// user themes are reloaded when their file changes.
package theme
