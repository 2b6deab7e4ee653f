// Package slackui holds Block Kit builders for schedbot's modal and replies.
package slackui
