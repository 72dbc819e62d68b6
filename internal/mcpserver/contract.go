package mcpserver

// ReportFormatContract describes the report file format that LLM consumers
// should follow when writing reports through save_report.
const ReportFormatContract = `# UX Report Format Contract

Every report is one Markdown file inside a category directory
(` + "`" + `<Category>/<Title-slug>-<YYYY-MM-DD>.md` + "`" + `).

## Structure

` + "```" + `markdown
---
title: "Checkout usability study"
date: 2024-03-09
category: "Usability"
author: "Ana"
---

# Checkout usability study

One-paragraph summary of the study.

## Background

Why the study was run.

## Findings

- Most participants **missed** the coupon field
- Two abandoned at the *shipping* step

## Recommendations

1. Move the coupon field above the total
2. Show shipping costs on the cart page
` + "```" + `

## Rules

1. **Front matter comes first.** The ` + "`" + `---` + "`" + ` fences must open the file.
   ` + "`" + `title` + "`" + `, ` + "`" + `category` + "`" + ` and ` + "`" + `author` + "`" + ` are double-quoted with inner ` + "`" + `"` + "`" + `
   escaped as ` + "`" + `\"` + "`" + `. ` + "`" + `date` + "`" + ` is written by the server at save time.
2. **One ` + "`" + `# ` + "`" + `heading** holds the title. Text between it and the first
   ` + "`" + `## ` + "`" + ` heading is the summary.
3. **Each ` + "`" + `## ` + "`" + ` heading opens a section.** Order is preserved. New reports
   start with Background, Objectives, Methodology, Findings, Recommendations.
4. **Inline styles:** ` + "`" + `**bold**` + "`" + `, ` + "`" + `*italic*` + "`" + `, ` + "`" + `~~strikethrough~~` + "`" + `,
   ` + "`" + `[label](url)` + "`" + `, ` + "`" + `![alt](src)` + "`" + `. Nothing else is kept.
5. **Lists** are flat: ` + "`" + `- item` + "`" + ` or ` + "`" + `1. item` + "`" + `. Nested lists are flattened.
6. **Paragraphs** are separated by a blank line; consecutive lines form one
   paragraph with line breaks.
7. **Categories** are plain names without ` + "`" + `/` + "`" + ` or ` + "`" + `\` + "`" + ` and must not start
   with a dot. Unknown categories are added on first save.

## Images

- Upload images via the ` + "`" + `upload_asset` + "`" + ` tool. It returns a ` + "`" + `markdown_image` + "`" + ` field ready to paste into a section.
- Assets are served from ` + "`" + `/api/assets/<filename>` + "`" + `.
- Supported formats: png, jpg, jpeg, gif, webp, svg.
`
