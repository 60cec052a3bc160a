package mcpserver

// AnnotationFormatContract describes the canonical transcription markup
// that LLM consumers should follow when creating or updating pages.
const AnnotationFormatContract = `# Vellum Annotation Format Contract

Every page transcription stored in Vellum MUST follow this structure.

## Metadata directives

Place metadata directives at the top of the transcription. The current
syntax wraps each value in an HTML-style tag:

` + "```" + `
<lang>latin</lang>
<page-num>12</page-num>
<folio>14r</folio>
<sig>b.ii</sig>
<warning>water damage along the gutter</warning>
<summary>Opening of the second homily.</summary>
<keywords>homily, incipit</keywords>
<abbrev>DNS = dominus</abbrev>
<vocab>aratrum</vocab>
<meta>scribe change at line 9</meta>
` + "```" + `

The older double-bracket syntax is still accepted and means the same
thing: ` + "`" + `[[language: latin]]` + "`" + `, ` + "`" + `[[page number: 12]]` + "`" + `, ` + "`" + `[[folio: 14r]]` + "`" + `,
` + "`" + `[[signature: b.ii]]` + "`" + `, ` + "`" + `[[warning: ...]]` + "`" + `, ` + "`" + `[[summary: ...]]` + "`" + `,
` + "`" + `[[keywords: ...]]` + "`" + `, ` + "`" + `[[abbrev: ...]]` + "`" + `, ` + "`" + `[[vocabulary: ...]]` + "`" + `,
` + "`" + `[[meta: ...]]` + "`" + `. Prefer the tag syntax for new pages.

## Rules

1. **One value per singleton field.** ` + "`" + `lang` + "`" + `, ` + "`" + `page-num` + "`" + `, ` + "`" + `folio` + "`" + `, ` + "`" + `sig` + "`" + `,
   ` + "`" + `warning` + "`" + `, and ` + "`" + `summary` + "`" + ` take a single value; the first directive wins.
2. **List fields accumulate.** ` + "`" + `keywords` + "`" + `, ` + "`" + `abbrev` + "`" + `, and ` + "`" + `vocab` + "`" + ` are
   comma-separated and may repeat; ` + "`" + `meta` + "`" + ` holds one free-text note per
   directive.
3. **No prose preamble.** Do not write "Here is the translation:" or
   similar before the transcription. The extractor strips such lines, so
   they never reach readers, but clean input is preferred.
4. **No code fences.** Do not wrap the transcription in ` + "```" + ` fences.
5. **File paths** end with ` + "`" + `.md` + "`" + ` and use forward slashes.
6. **Encoding** is UTF-8.

## Inline annotations

Annotations live in the body text, in double brackets with a kind prefix:

- ` + "`" + `[[note: editorial aside]]` + "`" + ` marks commentary hidden from readers.
- ` + "`" + `[[term: aratrum → plough]]` + "`" + ` defines a glossary term. The arrow
  (` + "`" + `→` + "`" + ` or ` + "`" + `->` + "`" + `) separates the term from its gloss; terms are always
  visible to readers.
- ` + "`" + `[[margin: text in the margin]]` + "`" + ` records marginalia.
- ` + "`" + `[[gloss: interlinear gloss]]` + "`" + ` records a gloss between the lines.
- ` + "`" + `[[insert: text added above the line]]` + "`" + ` records a scribal insertion.
- ` + "`" + `[[unclear: best guess]]` + "`" + ` marks an uncertain reading.
- ` + "`" + `[[image: scans/014r.jpg]]` + "`" + ` references a manuscript scan.

Layout markers:

- ` + "`" + `# heading` + "`" + ` through ` + "`" + `###### heading` + "`" + ` mark rubrics and titles.
- ` + "`" + `-> centered line <-` + "`" + ` and ` + "`" + `:: centered line ::` + "`" + ` center a line, as on
  title pages. Combine with headings: ` + "`" + `## -> INCIPIT <-` + "`" + `.

## Scans

- Upload scans via the ` + "`" + `upload_scan` + "`" + ` tool. It returns an ` + "`" + `imageDirective` + "`" + `
  field ready to paste into the page body.
- Scans are stored in the shared ` + "`" + `scans/` + "`" + ` directory (flat, no sub-folders).
- Reference them with ` + "`" + `[[image: /scans/filename.jpg]]` + "`" + `.
- Supported formats: png, jpg, jpeg, gif, webp, pdf.

## Example

` + "```" + `
<lang>latin</lang>
<folio>14r</folio>
<summary>Opening of the homily on the plough.</summary>
<keywords>homily, agriculture</keywords>

## -> INCIPIT <-

In principio erat [[term: aratrum → plough]] quod
[[unclear: colonus]] tenebat. [[note: the initial I is historiated]]

[[image: /scans/014r.jpg]]
` + "```" + `
`
