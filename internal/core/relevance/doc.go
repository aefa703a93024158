// Package relevance scores a fixed pool of candidate prompts against a user's
// recent writing.
//
// Every ranking call builds its own corpus from the candidates and the query
// documents, derives one IDF map from that corpus and vectorizes both sides in
// that shared term space. Nothing here holds state between calls.
package relevance
