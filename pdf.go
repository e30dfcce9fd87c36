package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth  = 210 // A4 width in mm
	pdfMargin     = 10  // Margin in mm
	pdfLineHeight = 5   // Line height in mm
	pdfFontSize   = 9
	pdfTabWidth   = 4 // Number of spaces for a tab
)

// exportPDF renders the entries of a finished merge as a syntax-highlighted
// PDF, one page section per entry, followed by the merge summary. The merge
// must have been run WithRetainedBodies.
func exportPDF(result MergeResult, outputPath string) error {
	fmt.Printf("Generating PDF output at: %s\n", outputPath)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	// Core fonts are cp1252; translate UTF-8 text before writing it.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	style := styles.Get("github")
	if style == nil {
		style = styles.Fallback
	}

	for _, er := range result.Entries {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", pdfFontSize+1)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(pdfPageWidth-2*pdfMargin, pdfLineHeight, tr("File: "+er.Entry.RelPath), "", "L", false)
		pdf.Ln(pdfLineHeight / 2)

		if er.Tokens > 0 {
			pdf.SetFont("Helvetica", "", pdfFontSize-1)
			pdf.MultiCell(pdfPageWidth-2*pdfMargin, pdfLineHeight, fmt.Sprintf("Tokens: %d", er.Tokens), "", "L", false)
			pdf.Ln(pdfLineHeight / 2)
		}

		pdf.Line(pdfMargin, pdf.GetY(), pdfPageWidth-pdfMargin, pdf.GetY())
		pdf.Ln(pdfLineHeight / 2)

		content, readErr := readEntryForPDF(er)
		if readErr != nil {
			pdf.SetFont("Courier", "", pdfFontSize)
			pdf.SetTextColor(255, 0, 0)
			pdf.MultiCell(pdfPageWidth-2*pdfMargin, pdfLineHeight, tr(fmt.Sprintf("Error reading file: %v", readErr)), "", "L", false)
			continue
		}
		if err := writeHighlightedCode(pdf, style, tr, content, er.Entry.Name); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Syntax highlighting failed for %s: %v. Writing plain text.\n", er.Entry.RelPath, err)
			pdf.SetFont("Courier", "", pdfFontSize)
			pdf.SetTextColor(0, 0, 0)
			pdf.MultiCell(pdfPageWidth-2*pdfMargin, pdfLineHeight, tr(content), "", "L", false)
		}
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", pdfFontSize+1)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(pdfPageWidth-2*pdfMargin, pdfLineHeight, "--- Summary ---", "", "L", false)
	pdf.Ln(pdfLineHeight / 2)
	pdf.SetFont("Helvetica", "", pdfFontSize)
	pdf.MultiCell(pdfPageWidth-2*pdfMargin, pdfLineHeight, tr(summaryText(result)), "", "L", false)

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("failed to save PDF to %s: %w", outputPath, err)
	}
	fmt.Printf("Successfully saved PDF to %s\n", outputPath)
	return nil
}

// readEntryForPDF returns the body exactly as the merge wrote it, or the
// error the entry failed with. Bodies are only present when the merge ran
// WithRetainedBodies.
func readEntryForPDF(er EntryResult) (string, error) {
	if er.Err != nil {
		return "", er.Err
	}
	return string(er.Body), nil
}

// pickLexer chooses a lexer by file name, then by content.
func pickLexer(name, content string) chroma.Lexer {
	lexer := lexers.Match(name)
	if lexer == nil {
		lexer = lexers.Analyse(content)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

// writeHighlightedCode writes content to the PDF using the colors and
// weights of style.
func writeHighlightedCode(pdf *gofpdf.Fpdf, style *chroma.Style, tr func(string) string, content, name string) error {
	iterator, err := pickLexer(name, content).Tokenise(nil, content)
	if err != nil {
		return fmt.Errorf("tokenization failed: %w", err)
	}

	pdf.SetFont("Courier", "", pdfFontSize)
	for token := iterator(); token != chroma.EOF; token = iterator() {
		entry := style.Get(token.Type)
		styleStr := ""
		if entry.Bold == chroma.Yes {
			styleStr += "B"
		}
		if entry.Italic == chroma.Yes {
			styleStr += "I"
		}
		pdf.SetFontStyle(styleStr)

		if entry.Colour.IsSet() {
			pdf.SetTextColor(int(entry.Colour.Red()), int(entry.Colour.Green()), int(entry.Colour.Blue()))
		} else if fg := style.Get(chroma.Text).Colour; fg.IsSet() {
			pdf.SetTextColor(int(fg.Red()), int(fg.Green()), int(fg.Blue()))
		} else {
			pdf.SetTextColor(0, 0, 0)
		}

		tokenValue := strings.ReplaceAll(token.Value, "\t", strings.Repeat(" ", pdfTabWidth))
		pdf.Write(pdfLineHeight, tr(tokenValue))
	}
	pdf.Ln(-1)
	return nil
}
